package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/mealkiosk/internal/config"
	"github.com/huangang/mealkiosk/internal/localstore"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/internal/utils"
	"gorm.io/gorm"
)

// AdminSession is the signed-in admin persisted on the kiosk.
type AdminSession struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	LoginAt  int64  `json:"login_at"` // unix millis
}

type AuthService struct {
	db         *gorm.DB
	store      localstore.Store
	jwtConfig  *config.JWTConfig
	sessionTTL time.Duration
	now        func() time.Time
}

func NewAuthService(db *gorm.DB, store localstore.Store, jwtCfg *config.JWTConfig, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		db:         db,
		store:      store,
		jwtConfig:  jwtCfg,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token    string            `json:"token"`
	ExpireAt time.Time         `json:"expire_at"`
	Admin    *models.AdminUser `json:"admin"`
	Session  *AdminSession     `json:"session"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// Login checks the credentials, issues a token and stores the session locally.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	var admin models.AdminUser
	err := s.db.WithContext(ctx).Where("username = ?", req.Username).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(req.Password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !admin.Active {
		return nil, ErrAccountDisabled
	}

	hours := s.jwtConfig.ExpireHour
	if hours <= 0 {
		hours = 24
	}
	token, err := utils.GenerateToken(admin.ID, admin.Username, admin.Name, hours)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &AdminSession{
		ID:       admin.ID,
		Username: admin.Username,
		Name:     admin.Name,
		LoginAt:  now.UnixMilli(),
	}
	if err := localstore.SetJSON(ctx, s.store, localstore.KeyAdminSession, session); err != nil {
		return nil, fmt.Errorf("save admin session: %w", err)
	}

	s.db.WithContext(ctx).Model(&admin).Update("last_login", now)

	return &LoginResult{
		Token:    token,
		ExpireAt: now.Add(time.Duration(hours) * time.Hour),
		Admin:    &admin,
		Session:  session,
	}, nil
}

// CurrentSession returns the stored session, or nil when there is none or it
// is older than the session TTL. An expired session is removed.
func (s *AuthService) CurrentSession(ctx context.Context) (*AdminSession, error) {
	var session AdminSession
	ok, err := localstore.GetJSON(ctx, s.store, localstore.KeyAdminSession, &session)
	if err != nil || !ok {
		return nil, err
	}
	if s.now().After(time.UnixMilli(session.LoginAt).Add(s.sessionTTL)) {
		return nil, s.store.Remove(ctx, localstore.KeyAdminSession)
	}
	return &session, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	return s.store.Remove(ctx, localstore.KeyAdminSession)
}

func (s *AuthService) GetAdminByID(ctx context.Context, id uint) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := s.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &admin, nil
}

// EnsureDefaultAdmin creates admin/admin when no admin account exists.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.AdminUser{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hashed, err := utils.HashPassword("admin")
	if err != nil {
		return false, err
	}
	admin := models.AdminUser{
		Username:     "admin",
		Name:         "Administrator",
		PasswordHash: hashed,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, adminID uint, req *ChangePasswordRequest) error {
	admin, err := s.GetAdminByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(req.OldPassword, admin.PasswordHash) {
		return ErrIncorrectPassword
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(admin).Update("password_hash", hashed).Error
}
