package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/easychat/auth"
	"github.com/kbukum/easychat/auth/password"
	apperrors "github.com/kbukum/easychat/errors"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/store"
	"github.com/kbukum/easychat/validation"
)

// UserRepository is the user persistence AuthService needs.
type UserRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*store.UserRecord, error)
	CreateUser(ctx context.Context, fields store.CreateUserFields) (*store.UserRecord, error)
}

var _ UserRepository = (*store.UserStore)(nil)

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	users  UserRepository
	hasher password.Hasher
	issuer auth.TokenIssuer
	log    *logger.Logger

	// unknownUserHash is verified against when the email is not registered,
	// so both failure paths pay the same argon2 cost.
	unknownUserHash string
}

// NewAuthService creates an AuthService.
func NewAuthService(users UserRepository, hasher password.Hasher, issuer auth.TokenIssuer, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	s := &AuthService{
		users:  users,
		hasher: hasher,
		issuer: issuer,
		log:    log.WithComponent("auth"),
	}
	hash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		s.log.Warn("Could not prepare the unknown-user hash", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	s.unknownUserHash = hash
	return s
}

// SignUp creates a user and returns a token for it. A taken email yields
// ALREADY_EXISTS.
func (s *AuthService) SignUp(ctx context.Context, form SignUpForm) (string, error) {
	form.Email = normalizeEmail(form.Email)
	form.Username = strings.TrimSpace(form.Username)
	if err := validation.Validate(form); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(form.Passwd)
	if err != nil {
		return "", apperrors.Internal(err)
	}

	user, err := s.users.CreateUser(ctx, store.CreateUserFields{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		Avatar:       form.Avatar,
	})
	if err != nil {
		return "", err
	}

	token, err := s.issuer.Sign(user.Identity())
	if err != nil {
		return "", apperrors.Internal(err)
	}
	s.log.WithContext(ctx).Info("User signed up", map[string]interface{}{
		logger.FieldUserID: user.ID,
	})
	return token, nil
}

// SignIn checks the credentials and returns a token. An unknown email and a
// wrong password both yield INVALID_CREDENTIALS; a stored hash that cannot
// be parsed yields CORRUPT_STORED_HASH.
func (s *AuthService) SignIn(ctx context.Context, form SignInForm) (string, error) {
	form.Email = normalizeEmail(form.Email)
	if err := validation.Validate(form); err != nil {
		return "", err
	}

	user, err := s.users.FindUserByEmail(ctx, form.Email)
	if err != nil {
		return "", err
	}
	if user == nil {
		_, _ = s.hasher.Verify(form.Passwd, s.unknownUserHash)
		return "", apperrors.InvalidCredentials()
	}

	ok, err := s.hasher.Verify(form.Passwd, user.Passwd)
	if err != nil {
		if errors.Is(err, password.ErrMalformedHash) {
			s.log.WithContext(ctx).Error("Stored password hash is corrupt", map[string]interface{}{
				logger.FieldUserID: user.ID,
			})
			return "", apperrors.CorruptStoredHash(err)
		}
		return "", apperrors.Internal(err)
	}
	if !ok {
		return "", apperrors.InvalidCredentials()
	}

	token, err := s.issuer.Sign(user.Identity())
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
