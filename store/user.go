package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kbukum/easychat/database"
)

// CreateUserFields are the columns written for a new user. PasswordHash is
// the encoded hash, never the plain password.
type CreateUserFields struct {
	Username     string
	Email        string
	PasswordHash string
	Avatar       string
}

// UserStore reads and writes t_user.
type UserStore struct {
	src Source
}

// NewUserStore creates a UserStore over src.
func NewUserStore(src Source) *UserStore {
	return &UserStore{src: src}
}

// FindUserByEmail returns the user with the given email, or (nil, nil) when
// there is none.
func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	_, db, err := conn(ctx, s.src)
	if err != nil {
		return nil, err
	}

	var user UserRecord
	err = db.Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "user")
	}
	return &user, nil
}

// CreateUser inserts a user. A taken email yields ALREADY_EXISTS.
func (s *UserStore) CreateUser(ctx context.Context, fields CreateUserFields) (*UserRecord, error) {
	_, db, err := conn(ctx, s.src)
	if err != nil {
		return nil, err
	}

	user := UserRecord{
		Username: fields.Username,
		Email:    fields.Email,
		Passwd:   fields.PasswordHash,
		Avatar:   fields.Avatar,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, database.FromDatabase(err, "user")
	}
	return &user, nil
}

// countUsers returns how many of ids name existing users.
func countUsers(db *gorm.DB, ids []int64) (int64, error) {
	var n int64
	err := db.Model(&UserRecord{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}
