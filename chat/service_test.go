package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/easychat/auth/jwt"
	"github.com/kbukum/easychat/auth/jwt/jwttest"
	"github.com/kbukum/easychat/auth/password"
	apperrors "github.com/kbukum/easychat/errors"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/store"
)

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	byEmail map[string]*store.UserRecord
	nextID  int64
	err     error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*store.UserRecord{}}
}

func (f *fakeUsers) FindUserByEmail(_ context.Context, email string) (*store.UserRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byEmail[email], nil
}

func (f *fakeUsers) CreateUser(_ context.Context, fields store.CreateUserFields) (*store.UserRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.byEmail[fields.Email]; ok {
		return nil, apperrors.AlreadyExists("user")
	}
	f.nextID++
	u := &store.UserRecord{
		ID:       f.nextID,
		Username: fields.Username,
		Email:    fields.Email,
		Passwd:   fields.PasswordHash,
		Avatar:   fields.Avatar,
	}
	f.byEmail[u.Email] = u
	return u, nil
}

// testHasher keeps argon2 cheap in tests.
func testHasher() *password.Argon2Hasher {
	return password.NewArgon2Hasher(password.WithTime(1), password.WithMemory(64), password.WithThreads(1))
}

func newTestService(t *testing.T) (*AuthService, *fakeUsers, *jwt.Verifier) {
	t.Helper()
	kp := jwttest.NewKeyPair(t)
	signer, verifier, err := jwt.Load(jwt.Config{PrivateKey: string(kp.PrivatePEM), PublicKey: string(kp.PublicPEM)})
	if err != nil {
		t.Fatalf("jwt.Load: %v", err)
	}
	users := newFakeUsers()
	return NewAuthService(users, testHasher(), signer, logger.Nop()), users, verifier
}

// countingHasher records the hashes Verify was asked to check.
type countingHasher struct {
	password.Hasher
	verified []string
}

func (h *countingHasher) Verify(pw, hash string) (bool, error) {
	h.verified = append(h.verified, hash)
	return h.Hasher.Verify(pw, hash)
}

var fooSignUp = SignUpForm{Username: "foo", Email: "foo@acme.com", Passwd: "secret"}

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	svc, users, verifier := newTestService(t)
	ctx := context.Background()

	token, err := svc.SignUp(ctx, fooSignUp)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	identity, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify signup token: %v", err)
	}
	if identity.ID != 1 || identity.Username != "foo" || identity.Email != "foo@acme.com" {
		t.Errorf("unexpected identity %+v", identity)
	}

	stored := users.byEmail["foo@acme.com"]
	if stored.Passwd == "secret" || stored.Passwd == "" {
		t.Errorf("expected a password hash to be stored, got %q", stored.Passwd)
	}

	token, err = svc.SignIn(ctx, SignInForm{Email: " Foo@Acme.com ", Passwd: "secret"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if identity, err = verifier.Verify(token); err != nil || identity.ID != 1 {
		t.Errorf("unexpected signin identity %+v (err %v)", identity, err)
	}
}

func TestAuthService_SignInFailures(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, fooSignUp); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	users.byEmail["bar@acme.com"] = &store.UserRecord{ID: 9, Username: "bar", Email: "bar@acme.com", Passwd: "plaintext"}

	tests := []struct {
		name       string
		form       SignInForm
		wantCode   apperrors.ErrorCode
		wantStatus int
	}{
		{"wrong password", SignInForm{Email: "foo@acme.com", Passwd: "Secret"}, apperrors.ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{"unknown email", SignInForm{Email: "nobody@acme.com", Passwd: "secret"}, apperrors.ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{"corrupt stored hash", SignInForm{Email: "bar@acme.com", Passwd: "secret"}, apperrors.ErrCodeCorruptStoredHash, http.StatusUnprocessableEntity},
		{"missing password", SignInForm{Email: "foo@acme.com"}, apperrors.ErrCodeValidation, http.StatusBadRequest},
		{"bad email", SignInForm{Email: "foo", Passwd: "secret"}, apperrors.ErrCodeValidation, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignIn(ctx, tt.form)
			appErr, ok := apperrors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, appErr.Code)
			}
			if appErr.HTTPStatus != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, appErr.HTTPStatus)
			}
		})
	}
}

func TestAuthService_SignUpFailures(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, fooSignUp); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if _, err := svc.SignUp(ctx, fooSignUp); !apperrors.HasCode(err, apperrors.ErrCodeAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS for a taken email, got %v", err)
	}

	short := fooSignUp
	short.Email = "other@acme.com"
	short.Passwd = "123"
	if _, err := svc.SignUp(ctx, short); !apperrors.HasCode(err, apperrors.ErrCodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for a short password, got %v", err)
	}

	users.err = apperrors.DatabaseError(errors.New("connection refused"))
	fresh := fooSignUp
	fresh.Email = "new@acme.com"
	if _, err := svc.SignUp(ctx, fresh); !apperrors.HasCode(err, apperrors.ErrCodeDatabaseError) {
		t.Errorf("expected DATABASE_ERROR, got %v", err)
	}
}

func TestAuthService_SignInUnknownEmailRunsArgon2(t *testing.T) {
	kp := jwttest.NewKeyPair(t)
	signer, _, err := jwt.Load(jwt.Config{PrivateKey: string(kp.PrivatePEM), PublicKey: string(kp.PublicPEM)})
	if err != nil {
		t.Fatalf("jwt.Load: %v", err)
	}
	hasher := &countingHasher{Hasher: testHasher()}
	svc := NewAuthService(newFakeUsers(), hasher, signer, logger.Nop())

	_, err = svc.SignIn(context.Background(), SignInForm{Email: "nobody@acme.com", Passwd: "secret"})
	if !apperrors.HasCode(err, apperrors.ErrCodeInvalidCredentials) {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
	}
	if len(hasher.verified) != 1 {
		t.Fatalf("expected one argon2 verification, got %d", len(hasher.verified))
	}
	if !strings.HasPrefix(hasher.verified[0], "$argon2id$") {
		t.Errorf("expected a well-formed argon2id hash, got %q", hasher.verified[0])
	}
}
