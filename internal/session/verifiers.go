package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"hiredup/internal/auth"
	"hiredup/internal/database"
)

// 演示账号，对应 fixed 模式下唯一可登录的凭据。
const (
	DemoEmail    = "user@example.com"
	DemoPassword = "password"
	demoUserID   = "1"
	demoUserName = "Test User"
)

// FixedVerifier accepts only the demo credential pair.
type FixedVerifier struct{}

func (FixedVerifier) Verify(ctx context.Context, email, password string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if email != DemoEmail || password != DemoPassword {
		return User{}, ErrInvalidCredentials
	}
	return User{ID: demoUserID, Email: DemoEmail, Name: demoUserName}, nil
}

// FixedRegistrar accepts every registration and hands out the demo user ID.
type FixedRegistrar struct{}

func (FixedRegistrar) Register(ctx context.Context, name, email, _ string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	return User{ID: demoUserID, Email: email, Name: name}, nil
}

// DatabaseVerifier checks credentials against bcrypt hashes in the users table.
type DatabaseVerifier struct {
	DB *gorm.DB
}

func (v DatabaseVerifier) Verify(ctx context.Context, email, password string) (User, error) {
	var user database.User
	err := v.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	return fromModel(user), nil
}

// DatabaseRegistrar stores new accounts with a bcrypt password hash.
type DatabaseRegistrar struct {
	DB *gorm.DB
}

func (r DatabaseRegistrar) Register(ctx context.Context, name, email, password string) (User, error) {
	email = normalizeEmail(email)
	var existing database.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return User{}, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	user := database.User{Email: email, Name: strings.TrimSpace(name), PasswordHash: hashed}
	if err := r.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return fromModel(user), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func fromModel(user database.User) User {
	return User{
		ID:    strconv.FormatUint(uint64(user.ID), 10),
		Email: user.Email,
		Name:  user.Name,
	}
}
