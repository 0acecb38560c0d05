package auth

import (
	"errors"
	"time"

	"github.com/lingokit/core/internal/config"
	"github.com/lingokit/core/internal/models"
	"github.com/lingokit/core/internal/pkg/jwt"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 14 * 24 * time.Hour

// Service handles owner authentication.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// EnsureOwner seeds the admin account on first boot. A configured password is
// required before any account is created.
func (s *Service) EnsureOwner(cfg *config.AppConfig) error {
	var count int64
	if err := s.db.Model(&models.UserModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if cfg.Admin.Password == "" {
		s.logger.Warn("no admin account exists and admin.password is not configured; admin API is unreachable")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := models.UserModel{
		Username: cfg.Admin.Username,
		Name:     cfg.Admin.Username,
		Password: string(hash),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return err
	}
	s.logger.Info("seeded admin account", zap.String("username", user.Username))
	return nil
}

// Login verifies credentials and issues a JWT.
func (s *Service) Login(username, password, ip string) (*loginResponse, error) {
	var user models.UserModel
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, errBadCredentials
	}

	token, err := jwt.Sign(user.ID, tokenTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s.db.Model(&user).Updates(map[string]interface{}{
		"last_login_time": &now,
		"last_login_ip":   ip,
	})

	return &loginResponse{Token: token, Username: user.Username, Name: user.Name}, nil
}
