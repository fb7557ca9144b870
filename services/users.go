package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"strings"

	"anonchat/db"
	"anonchat/models"
	"anonchat/pkg/errors"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(hash) == parts[1]
}

func issueToken(ctx context.Context, userID int64) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	err := db.GetWriteDB(ctx).Create(&models.UserTokens{
		UserID: userID,
		Token:  token,
	}).Error
	if err != nil {
		return "", err
	}
	return token, nil
}

// Register создает пользователя. Никнейм опционален: без него профиль
// остается анонимным и видим под псевдонимом из ID. Возвращает токен,
// регистрация сразу авторизует.
func (s *UserService) Register(ctx context.Context, nickname *string, password string) (*models.User, string, error) {
	if password == "" {
		return nil, "", errors.InvalidArg("password is required")
	}
	if nickname != nil && *nickname == "" {
		nickname = nil
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Nickname: nickname,
		Password: passwordHash,
	}
	if err := db.GetWriteDB(ctx).Create(&user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", errors.ErrNicknameTaken
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return &user, token, nil
}

// Login проверяет пароль и выдает новый токен, отзывая старые
func (s *UserService) Login(ctx context.Context, nickname, password string) (*models.User, string, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).
		Where("nickname = ?", nickname).
		First(&user).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", errors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}

	if !verifyPassword(password, user.Password) {
		return nil, "", errors.ErrInvalidCredentials
	}

	if err := s.Logout(ctx, user.ID); err != nil {
		return nil, "", err
	}
	token, err := issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return &user, token, nil
}

// Logout отзывает все токены пользователя
func (s *UserService) Logout(ctx context.Context, userID int64) error {
	err := db.GetWriteDB(ctx).
		Where("user_id = ?", userID).
		Delete(&models.UserTokens{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

// CheckToken возвращает ID владельца токена
func (s *UserService) CheckToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, errors.ErrUnauthorized
	}
	var record models.UserTokens
	err := db.GetReadOnlyDB(ctx).
		Where("token = ?", token).
		First(&record).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errors.ErrUnauthorized
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check token: %w", err)
	}
	return record.UserID, nil
}

// GetProfile загружает пользователя по ID
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, userID).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// UpdateProfile меняет отображаемое имя и аватар
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, nickname, image *string) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if nickname != nil {
		if *nickname == "" {
			updates["nickname"] = nil
		} else {
			updates["nickname"] = *nickname
		}
	}
	if image != nil {
		if *image == "" {
			updates["image"] = nil
		} else {
			updates["image"] = *image
		}
	}
	if len(updates) == 0 {
		return user, nil
	}

	err = db.GetWriteDB(ctx).Model(user).Updates(updates).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrNicknameTaken
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}
