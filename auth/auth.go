// Package auth manages users, their profiles and the credentials the API accepts:
// signed JWTs from login and long-lived API tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetinventory/apperror"
	"fleetinventory/config"
	"fleetinventory/metrics"
	"fleetinventory/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewService(db *gorm.DB, log *zap.Logger, cfg config.JWTConfig) *Service {
	return &Service{
		db:         db,
		log:        log,
		signingKey: []byte(cfg.SigningKey),
		ttl:        time.Duration(cfg.ExpirationHours) * time.Hour,
		now:        time.Now,
	}
}

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type ProfileInput struct {
	PhoneNumber string `json:"phone_number" validate:"max=20"`
	Address     string `json:"address" validate:"max=200"`
}

type CreateUserInput struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,min=8"`
	ProfileInput
}

// CreateUser stores the user with a bcrypt hash and creates its profile in the same transaction.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := apperror.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Username: strings.TrimSpace(in.Username), PasswordHash: string(hash), IsActive: true}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(&user).Error; err != nil {
			return apperror.Translate(err, "username "+user.Username)
		}
		profile := models.UserProfile{UserID: user.ID, PhoneNumber: in.PhoneNumber, Address: in.Address}
		if err := tx.Create(&profile).Error; err != nil {
			return apperror.Translate(err, "profile")
		}
		user.Profile = &profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("User created", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return &user, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, apperror.Translate(err, "user")
	}
	return &user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.UserProfile, error) {
	if err := apperror.Struct(in); err != nil {
		return nil, err
	}
	var profile models.UserProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.UserProfile{UserID: userID}
		} else if err != nil {
			return err
		}
		profile.PhoneNumber = in.PhoneNumber
		profile.Address = in.Address
		return tx.Save(&profile).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Login checks the password and returns a signed token for the user.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err == nil && user.IsActive {
		err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	} else if err == nil {
		err = apperror.ErrInvalidCredentials
	}
	metrics.RecordAuthAttempt(err == nil)
	if err != nil {
		s.log.Warn("Login failed", zap.String("username", username))
		return "", nil, apperror.ErrInvalidCredentials
	}

	token, err := s.GenerateToken(&user)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrUnauthorized, err)
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, apperror.ErrUnauthorized
}

// GetOrCreateToken returns the user's API token, creating it on first use.
func (s *Service) GetOrCreateToken(ctx context.Context, username string) (*models.APIToken, bool, error) {
	var (
		token   models.APIToken
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
			return apperror.Translate(err, "user "+username)
		}

		err := tx.Where("user_id = ?", user.ID).First(&token).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		token = models.APIToken{Key: newTokenKey(), UserID: user.ID}
		created = true
		return tx.Omit("User").Create(&token).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &token, created, nil
}

// UserForAPIToken resolves an API token key to its active user.
func (s *Service) UserForAPIToken(ctx context.Context, key string) (*models.User, error) {
	var token models.APIToken
	if err := s.db.WithContext(ctx).Preload("User").Where("key = ?", key).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, err
	}
	if !token.User.IsActive {
		return nil, apperror.ErrUnauthorized
	}
	return &token.User, nil
}

func newTokenKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
