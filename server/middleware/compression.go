package middleware

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Supported content codings, in order of preference when the client weights
// them equally.
const (
	encodingZstd    = "zstd"
	encodingGzip    = "gzip"
	encodingDeflate = "deflate"
)

var encodingPreference = []string{encodingZstd, encodingGzip, encodingDeflate}

// encoder is implemented by the gzip, flate and zstd writers.
type encoder interface {
	io.WriteCloser
	Flush() error
	Reset(w io.Writer)
}

var encoderPools = map[string]*sync.Pool{
	encodingGzip: {New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	}},
	encodingDeflate: {New: func() any {
		w, _ := flate.NewWriter(io.Discard, flate.DefaultCompression)
		return w
	}},
	encodingZstd: {New: func() any {
		w, _ := zstd.NewWriter(io.Discard,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		return w
	}},
}

// Compression negotiates a content coding from Accept-Encoding and compresses
// the response body with it. Inner stages write plain bytes. Event streams,
// bodiless responses and responses that already carry a Content-Encoding are
// passed through untouched.
func Compression() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Encoding")

			encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{ResponseWriter: w, encoding: encoding}
			defer cw.close()
			next.ServeHTTP(cw, r)
		})
	}
}

// negotiateEncoding picks the supported coding with the highest q-value.
// It returns "" when the client accepts none of them.
func negotiateEncoding(header string) string {
	if header == "" {
		return ""
	}

	weights := make(map[string]float64)
	wildcard := -1.0
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			q = parsed
		}
		if name == "*" {
			wildcard = q
			continue
		}
		weights[name] = q
	}

	best, bestQ := "", 0.0
	for _, enc := range encodingPreference {
		q, ok := weights[enc]
		if !ok {
			q = wildcard
		}
		if q > bestQ {
			best, bestQ = enc, q
		}
	}
	return best
}

// compressWriter decides on the first WriteHeader or Write whether the
// response is compressed, since that is when the inner headers are final.
type compressWriter struct {
	http.ResponseWriter
	encoding string
	enc      encoder
	decided  bool
}

func (cw *compressWriter) WriteHeader(code int) {
	if code >= http.StatusContinue && code < http.StatusOK {
		cw.ResponseWriter.WriteHeader(code)
		return
	}
	if !cw.decided {
		cw.decide(code)
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if !cw.decided {
		if cw.Header().Get("Content-Type") == "" {
			cw.Header().Set("Content-Type", http.DetectContentType(b))
		}
		cw.WriteHeader(http.StatusOK)
	}
	if cw.enc == nil {
		return cw.ResponseWriter.Write(b)
	}
	return cw.enc.Write(b)
}

func (cw *compressWriter) decide(status int) {
	cw.decided = true

	h := cw.Header()
	if status == http.StatusNoContent || status == http.StatusNotModified ||
		h.Get("Content-Encoding") != "" ||
		strings.HasPrefix(h.Get("Content-Type"), "text/event-stream") {
		return
	}

	h.Del("Content-Length")
	h.Set("Content-Encoding", cw.encoding)
	enc := encoderPools[cw.encoding].Get().(encoder)
	enc.Reset(cw.ResponseWriter)
	cw.enc = enc
}

// Flush writes any buffered compressed bytes before flushing the connection.
func (cw *compressWriter) Flush() {
	if !cw.decided {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.enc != nil {
		_ = cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

func (cw *compressWriter) close() {
	if cw.enc == nil {
		return
	}
	_ = cw.enc.Close()
	cw.enc.Reset(io.Discard)
	encoderPools[cw.encoding].Put(cw.enc)
	cw.enc = nil
}
