package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/easychat/auth/authctx"
	"github.com/kbukum/easychat/auth/jwt"
	"github.com/kbukum/easychat/auth/jwt/jwttest"
	"github.com/kbukum/easychat/auth/session"
	apperrors "github.com/kbukum/easychat/errors"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/server/middleware"
)

var testIdentity = session.Identity{ID: 7, Username: "foo", Email: "foo@acme.com"}

type testKeys struct {
	signer   *jwt.Signer
	verifier *jwt.Verifier
}

func newTestKeys(t *testing.T, opts ...jwt.Option) testKeys {
	t.Helper()
	kp := jwttest.NewKeyPair(t)
	signer, verifier, err := jwt.Load(jwt.Config{
		PrivateKey: string(kp.PrivatePEM),
		PublicKey:  string(kp.PublicPEM),
	}, opts...)
	if err != nil {
		t.Fatalf("jwt.Load: %v", err)
	}
	return testKeys{signer: signer, verifier: verifier}
}

func (k testKeys) token(t *testing.T) string {
	t.Helper()
	token, err := k.signer.Sign(testIdentity)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return token
}

// identityRouter echoes the identity found on the request scope.
func identityRouter(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		identity, ok := authctx.IdentityFrom(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"authenticated": ok,
			"identity":      identity,
		})
	})
}

func newPipeline(t *testing.T, keys testKeys, log *logger.Logger, router http.Handler) http.Handler {
	t.Helper()
	cors := &middleware.CORSConfig{}
	cors.ApplyDefaults()
	return middleware.Pipeline(middleware.PipelineConfig{
		Logger:      log,
		Verifier:    keys.verifier,
		PublicPaths: []string{"/", "/api/signin", "/api/signup", "/health"},
		CORS:        cors,
	})(router)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v (%q)", err, rr.Body.String())
	}
	return body
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_NoPanic(t *testing.T) {
	handler := middleware.Recovery(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRecovery_Panic(t *testing.T) {
	handler := middleware.Recovery(logger.Nop())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("test panic")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	body := decodeError(t, rr)
	if body.Code != apperrors.ErrCodeInternal {
		t.Fatalf("expected INTERNAL_ERROR, got %s", body.Code)
	}
	if strings.Contains(body.Error, "test panic") {
		t.Fatalf("panic value leaked to the client: %q", body.Error)
	}
}

func TestPipeline_PanicStillCarriesRequestID(t *testing.T) {
	keys := newTestKeys(t)
	handler := newPipeline(t, keys, logger.Nop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("x-request-id", "panic-id")
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := rr.Header().Get("x-request-id"); got != "panic-id" {
		t.Fatalf("expected panic-id, got %q", got)
	}
}

func TestRecovery_PanicAfterWriteAbortsResponse(t *testing.T) {
	handler := middleware.Recovery(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("late panic")
	}))

	rr := httptest.NewRecorder()
	func() {
		defer func() {
			if rec := recover(); rec != http.ErrAbortHandler {
				t.Errorf("expected http.ErrAbortHandler, got %v", rec)
			}
		}()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
	}()

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want the already written 200", rr.Code)
	}
	if got := rr.Body.String(); got != "partial" {
		t.Errorf("body = %q, want only the bytes written before the panic", got)
	}
	if ct := rr.Header().Get("Content-Type"); strings.Contains(ct, "application/json") {
		t.Errorf("error content type added after the response started: %q", ct)
	}
}

func TestPipeline_PanicAfterCompressedWriteNeverCompletes(t *testing.T) {
	keys := newTestKeys(t)
	srv := httptest.NewServer(newPipeline(t, keys, logger.Nop(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(strings.Repeat("chat history ", 64)))
		w.(http.Flusher).Flush()
		panic("late panic")
	})))
	defer srv.Close()

	req, err := http.NewRequest("GET", srv.URL+"/", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := srv.Client().Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected a gzip response, got %q", resp.Header.Get("Content-Encoding"))
	}
	raw, err := io.ReadAll(resp.Body)
	if err == nil {
		t.Fatalf("expected a truncated body, read %d bytes cleanly", len(raw))
	}
	if bytes.Contains(raw, []byte(apperrors.ErrCodeInternal)) {
		t.Error("error body appended to the compressed stream")
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID_GeneratesTimeOrderedID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authctx.RequestIDFrom(r.Context())
		if r.Header.Get("x-request-id") == "" {
			t.Error("expected x-request-id in request headers")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	got := rr.Header().Get("x-request-id")
	id, err := uuid.Parse(got)
	if err != nil {
		t.Fatalf("expected a UUID, got %q: %v", got, err)
	}
	if id.Version() != 7 {
		t.Errorf("expected UUIDv7, got version %d", id.Version())
	}
	if seen != got {
		t.Errorf("request scope has %q, response header has %q", seen, got)
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("X-Request-Id", "custom-id-123")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("x-request-id"); got != "custom-id-123" {
		t.Fatalf("expected custom-id-123, got %s", got)
	}
}

func TestPipeline_RequestIDOnEveryResponse(t *testing.T) {
	keys := newTestKeys(t)
	handler := newPipeline(t, keys, logger.Nop(), identityRouter(nil))

	tests := []struct {
		name       string
		path       string
		header     string
		inboundID  string
		wantStatus int
	}{
		{"public generated", "/", "", "", http.StatusOK},
		{"public preserved", "/", "", "abc", http.StatusOK},
		{"rejected generated", "/api/chat", "", "", http.StatusUnauthorized},
		{"rejected preserved", "/api/chat", "Basic xxx", "def", http.StatusUnauthorized},
		{"authenticated preserved", "/api/chat", "Bearer " + keys.token(t), "ghi", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.inboundID != "" {
				req.Header.Set("x-request-id", tt.inboundID)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			got := rr.Header().Get("x-request-id")
			if got == "" {
				t.Fatal("expected x-request-id on the response")
			}
			if tt.inboundID != "" && got != tt.inboundID {
				t.Fatalf("expected %q, got %q", tt.inboundID, got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

func TestAuthenticate_Evidence(t *testing.T) {
	keys := newTestKeys(t)
	valid := keys.token(t)

	tests := []struct {
		name     string
		header   []string
		query    string
		rawQuery string
		wantCode apperrors.ErrorCode
	}{
		{name: "bearer header", header: []string{"Bearer " + valid}},
		{name: "lowercase scheme", header: []string{"bearer " + valid}},
		{name: "query only", query: valid},
		{name: "basic header ignores valid query", header: []string{"Basic xxx"}, query: valid, wantCode: apperrors.ErrCodeMalformedCredentials},
		{name: "empty bearer", header: []string{"Bearer "}, wantCode: apperrors.ErrCodeMalformedCredentials},
		{name: "scheme only", header: []string{"Bearer"}, wantCode: apperrors.ErrCodeMalformedCredentials},
		{name: "empty header", header: []string{""}, query: valid, wantCode: apperrors.ErrCodeMalformedCredentials},
		{name: "two headers", header: []string{"Bearer " + valid, "Bearer " + valid}, wantCode: apperrors.ErrCodeMalformedCredentials},
		{name: "nothing", wantCode: apperrors.ErrCodeMissingCredentials},
		{name: "empty query", rawQuery: "token=", wantCode: apperrors.ErrCodeMissingCredentials},
		{name: "garbage token", header: []string{"Bearer not-a-jwt"}, wantCode: apperrors.ErrCodeInvalidToken},
		{name: "garbage query token", query: "not-a-jwt", wantCode: apperrors.ErrCodeInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := newPipeline(t, keys, logger.Nop(), identityRouter(&called))

			target := "/api/chat"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			if tt.rawQuery != "" {
				target += "?" + tt.rawQuery
			}
			req := httptest.NewRequest("GET", target, http.NoBody)
			for _, h := range tt.header {
				req.Header.Add("Authorization", h)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if tt.wantCode == "" {
				if rr.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
				}
				var body struct {
					Authenticated bool             `json:"authenticated"`
					Identity      session.Identity `json:"identity"`
				}
				if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if !body.Authenticated || body.Identity != testIdentity {
					t.Fatalf("expected identity %+v, got %+v", testIdentity, body)
				}
				return
			}

			if called {
				t.Fatal("router must not run for an unauthenticated request")
			}
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if got := decodeError(t, rr).Code; got != tt.wantCode {
				t.Fatalf("expected %s, got %s", tt.wantCode, got)
			}
		})
	}
}

func TestAuthenticate_VerificationFailures(t *testing.T) {
	keys := newTestKeys(t)
	other := newTestKeys(t)

	kp := jwttest.NewKeyPair(t)
	priv, err := jwt.LoadSigningKey(kp.PrivatePEM)
	if err != nil {
		t.Fatalf("LoadSigningKey: %v", err)
	}
	pub, err := jwt.LoadVerificationKey(kp.PublicPEM)
	if err != nil {
		t.Fatalf("LoadVerificationKey: %v", err)
	}
	past := time.Now().Add(-2 * jwt.TTL)
	staleToken, err := jwt.NewSigner(priv, jwt.WithClock(func() time.Time { return past })).Sign(testIdentity)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tests := []struct {
		name     string
		verifier *jwt.Verifier
		token    string
		wantCode apperrors.ErrorCode
	}{
		{"foreign key", keys.verifier, other.token(t), apperrors.ErrCodeInvalidSignature},
		{"expired", jwt.NewVerifier(pub), staleToken, apperrors.ErrCodeTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.Authenticate(middleware.AuthConfig{
				Verifier: tt.verifier,
				Logger:   logger.Nop(),
			})(identityRouter(nil))

			req := httptest.NewRequest("GET", "/api/chat", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if got := decodeError(t, rr).Code; got != tt.wantCode {
				t.Fatalf("expected %s, got %s", tt.wantCode, got)
			}
		})
	}
}

func TestAuthenticate_LogsRejectionAtWarn(t *testing.T) {
	keys := newTestKeys(t)
	var buf bytes.Buffer
	handler := middleware.Authenticate(middleware.AuthConfig{
		Verifier: keys.verifier,
		Logger:   logger.NewWithWriter(&buf, "debug"),
	})(identityRouter(nil))

	req := httptest.NewRequest("GET", "/api/chat", http.NoBody)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if record["level"] != "warn" {
		t.Errorf("expected warn level, got %v", record["level"])
	}
	if record["error_code"] != string(apperrors.ErrCodeInvalidToken) {
		t.Errorf("expected error_code INVALID_TOKEN, got %v", record["error_code"])
	}
}

func TestAuthenticate_SkipPaths(t *testing.T) {
	handler := middleware.Authenticate(middleware.AuthConfig{
		Verifier:  nil,
		SkipPaths: []string{"/", "/api/signin"},
		Logger:    logger.Nop(),
	})(identityRouter(nil))

	for _, path := range []string{"/", "/api/signin"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", path, http.NoBody))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rr.Code)
		}
	}

	// Skipping is exact: "/" must not open every path.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/chat", http.NoBody))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for /api/chat, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Tracing
// ---------------------------------------------------------------------------

func TestTracing_SpanClosesOnShortCircuit(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	keys := newTestKeys(t)

	handler := middleware.Pipeline(middleware.PipelineConfig{
		Logger:   logger.Nop(),
		Verifier: keys.verifier,
		Tracer:   tp.Tracer("test"),
	})(identityRouter(nil))

	req := httptest.NewRequest("GET", "/api/chat", http.NoBody)
	req.Header.Set("Authorization", "Basic xxx")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if v := attrs["http.status_code"]; v.AsInt64() != http.StatusUnauthorized {
		t.Errorf("expected status 401 on span, got %v", v.Emit())
	}
	if v := attrs["http.method"]; v.AsString() != "GET" {
		t.Errorf("expected method GET, got %v", v.Emit())
	}
	if v := attrs["http.request.header.authorization"]; !strings.Contains(v.Emit(), "REDACTED") || strings.Contains(v.Emit(), "xxx") {
		t.Errorf("authorization header must be redacted, got %v", v.Emit())
	}
	if _, ok := attrs["request.id"]; !ok {
		t.Error("expected request.id attribute")
	}
	if _, ok := attrs["http.latency_us"]; !ok {
		t.Error("expected latency attribute")
	}
}

func TestTracing_RecordsUserID(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	keys := newTestKeys(t)

	handler := middleware.Pipeline(middleware.PipelineConfig{
		Logger:   logger.Nop(),
		Verifier: keys.verifier,
		Tracer:   tp.Tracer("test"),
	})(identityRouter(nil))

	req := httptest.NewRequest("GET", "/api/chat?token="+keys.token(t), http.NoBody)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	for _, kv := range ended[0].Attributes() {
		if kv.Key == "user.id" {
			if kv.Value.AsInt64() != testIdentity.ID {
				t.Errorf("expected user.id %d, got %d", testIdentity.ID, kv.Value.AsInt64())
			}
			return
		}
	}
	t.Error("expected user.id attribute")
}

// ---------------------------------------------------------------------------
// ServerTime
// ---------------------------------------------------------------------------

var serverTimePattern = regexp.MustCompile(`^\d+ ms$`)

func TestServerTime_Header(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"writes body", func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(2 * time.Millisecond)
			_, _ = w.Write([]byte("ok"))
		}},
		{"writes status", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}},
		{"writes nothing", func(http.ResponseWriter, *http.Request) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			middleware.ServerTime(logger.Nop())(tt.handler).ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

			got := rr.Header().Get("x-server-time")
			if !serverTimePattern.MatchString(got) {
				t.Fatalf("expected \"<n> ms\", got %q", got)
			}
		})
	}
}

func TestPipeline_ServerTimeAbsentOnShortCircuit(t *testing.T) {
	keys := newTestKeys(t)
	handler := newPipeline(t, keys, logger.Nop(), identityRouter(nil))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/chat", http.NoBody))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("x-server-time"); got != "" {
		t.Fatalf("router did not run, expected no x-server-time, got %q", got)
	}
}

// ---------------------------------------------------------------------------
// Compression
// ---------------------------------------------------------------------------

var payload = strings.Repeat(`{"message":"hello"}`, 64)

func textHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, payload)
}

func TestCompression_Gzip(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	middleware.Compression()(http.HandlerFunc(textHandler)).ServeHTTP(rr, req)

	if got := rr.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip, got %q", got)
	}
	zr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != payload {
		t.Fatal("decompressed body differs from the original")
	}
}

func TestCompression_PrefersZstd(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip, deflate, zstd")
	middleware.Compression()(http.HandlerFunc(textHandler)).ServeHTTP(rr, req)

	if got := rr.Header().Get("Content-Encoding"); got != "zstd" {
		t.Fatalf("expected zstd, got %q", got)
	}
	dec, err := zstd.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer dec.Close()
	body, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != payload {
		t.Fatal("decompressed body differs from the original")
	}
}

func TestCompression_PassThrough(t *testing.T) {
	tests := []struct {
		name           string
		acceptEncoding string
		handler        http.HandlerFunc
	}{
		{"no accept-encoding", "", textHandler},
		{"unsupported coding", "br", textHandler},
		{"refused coding", "gzip;q=0", textHandler},
		{"event stream", "gzip", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, payload)
		}},
		{"no content", "gzip", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			middleware.Compression()(tt.handler).ServeHTTP(rr, req)

			if got := rr.Header().Get("Content-Encoding"); got != "" {
				t.Fatalf("expected no Content-Encoding, got %q", got)
			}
			if rr.Code != http.StatusNoContent && rr.Body.String() != payload {
				t.Fatal("body was altered")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORS_SetHeaders(t *testing.T) {
	cfg := &middleware.CORSConfig{
		AllowedOrigins: []string{"https://example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}
	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Origin", "https://example.com")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Fatalf("expected https://example.com, got %s", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Fatalf("expected 'GET, POST', got %s", got)
	}
}

func TestCORS_Defaults(t *testing.T) {
	cfg := &middleware.CORSConfig{}
	cfg.ApplyDefaults()

	if cfg.PathPrefix != "/api" {
		t.Errorf("expected /api prefix, got %q", cfg.PathPrefix)
	}
	want := "GET, POST, PUT, PATCH, DELETE"
	if got := strings.Join(cfg.AllowedMethods, ", "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPipeline_PreflightBypassesAuthentication(t *testing.T) {
	keys := newTestKeys(t)
	called := false
	handler := newPipeline(t, keys, logger.Nop(), identityRouter(&called))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/api/chat", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rr.Code)
	}
	if called {
		t.Error("router should not be called for preflight")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("expected the origin to be echoed, got %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	cfg := &middleware.CORSConfig{
		AllowedOrigins: []string{"https://allowed.com"},
	}
	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Origin", "https://evil.com")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header for disallowed origin, got %s", got)
	}
}

func TestCORS_OutsidePrefix(t *testing.T) {
	cfg := &middleware.CORSConfig{PathPrefix: "/api", AllowedOrigins: []string{"*"}}
	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS headers outside /api, got %s", got)
	}
}

// ---------------------------------------------------------------------------
// RequestLogger
// ---------------------------------------------------------------------------

func TestRequestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug")
	handler := middleware.Chain(
		middleware.RequestID(),
		middleware.RequestLogger(log),
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/chat", http.NoBody)
	req.Header.Set("x-request-id", "log-id")
	handler.ServeHTTP(rr, req)

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if record["request_id"] != "log-id" {
		t.Errorf("expected request_id log-id, got %v", record["request_id"])
	}
	if record["status"] != float64(http.StatusCreated) {
		t.Errorf("expected status 201, got %v", record["status"])
	}
	if _, ok := record["latency_us"]; !ok {
		t.Error("expected latency_us field")
	}
	if record["level"] != "info" {
		t.Errorf("expected info level, got %v", record["level"])
	}
}

func TestRequestLogger_SkipsHealth(t *testing.T) {
	var buf bytes.Buffer
	called := false
	handler := middleware.RequestLogger(logger.NewWithWriter(&buf, "debug"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if !called {
		t.Error("handler should still be called for health endpoints")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Chain
// ---------------------------------------------------------------------------

func TestChain_Order(t *testing.T) {
	var order []string

	m1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m1-before")
			next.ServeHTTP(w, r)
			order = append(order, "m1-after")
		})
	}
	m2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m2-before")
			next.ServeHTTP(w, r)
			order = append(order, "m2-after")
		})
	}

	chain := middleware.Chain(m1, m2)
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	expected := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("position %d: expected %s, got %s (full: %v)", i, v, order[i], order)
		}
	}
}

func TestGinWrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middleware.GinWrap(middleware.RequestID()))
	engine.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, authctx.RequestIDFrom(c.Request.Context()))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", http.NoBody)
	req.Header.Set("x-request-id", "gin-id")
	engine.ServeHTTP(rr, req)

	if rr.Body.String() != "gin-id" {
		t.Fatalf("expected gin-id, got %q", rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Streaming through the pipeline
// ---------------------------------------------------------------------------

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed bool
}

func (f *flushRecorder) Flush() {
	f.flushed = true
	f.ResponseRecorder.Flush()
}

func TestPipeline_FlushReachesConnection(t *testing.T) {
	keys := newTestKeys(t)
	handler := newPipeline(t, keys, logger.Nop(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": ping\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}))

	fr := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	req := httptest.NewRequest("GET", "/api/events?token="+keys.token(t), http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	handler.ServeHTTP(fr, req)

	if !fr.flushed {
		t.Error("expected Flush to be delegated to the underlying writer")
	}
	if got := fr.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("event streams must not be compressed, got %q", got)
	}
	if fr.Body.String() != ": ping\n\n" {
		t.Errorf("unexpected body %q", fr.Body.String())
	}
}
