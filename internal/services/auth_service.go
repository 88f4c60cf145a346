package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/muzhihao1/yeslocker-server/internal/apperrors"
	"github.com/muzhihao1/yeslocker-server/internal/config"
	"github.com/muzhihao1/yeslocker-server/internal/models"
	"github.com/muzhihao1/yeslocker-server/internal/ratelimit"
	"github.com/muzhihao1/yeslocker-server/internal/utils"
)

// OTP and lockout policy.
const (
	OtpTTL            = 5 * time.Minute
	OtpMaxAttempts    = 3
	OtpResendCooldown = 60 * time.Second

	LockoutThreshold = 5
	LockoutDuration  = 15 * time.Minute
)

// AuthService implements OTP issuance/verification and admin login.
type AuthService struct {
	db      *gorm.DB
	cfg     *config.Config
	notify  *NotifyService
	limiter *ratelimit.Limiter
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, cfg *config.Config, notify *NotifyService, limiter *ratelimit.Limiter) *AuthService {
	return &AuthService{db: db, cfg: cfg, notify: notify, limiter: limiter}
}

// OtpIssueResult describes a successfully dispatched OTP.
type OtpIssueResult struct {
	Phone          string `json:"phone"`
	ExpiresIn      int    `json:"expires_in"`
	ResendCooldown int    `json:"resend_cooldown"`
}

// RequestOtp validates the request, generates a 6-digit code, stores its
// salted hash, and dispatches it via SMS. The code record is rolled back
// when dispatch fails.
func (s *AuthService) RequestOtp(ctx context.Context, ip, phone, purpose, name string, storeID *uuid.UUID) (*OtpIssueResult, error) {
	if !utils.ValidPhone(phone) {
		return nil, apperrors.ErrValidation.WithMessage("invalid phone number format")
	}

	switch purpose {
	case models.OtpPurposeRegister:
		var existing models.User
		if err := s.db.Where("phone = ?", phone).First(&existing).Error; err == nil {
			return nil, apperrors.ErrConflict.WithMessage("phone number already registered")
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}

		if name == "" {
			return nil, apperrors.ErrValidation.WithMessage("name is required for registration")
		}
		if storeID == nil {
			return nil, apperrors.ErrValidation.WithMessage("store_id is required for registration")
		}

		var store models.Store
		if err := s.db.First(&store, "id = ?", *storeID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.ErrNotFound.WithMessage("store not found")
			}
			return nil, err
		}
		if store.Status != models.StoreStatusActive {
			return nil, apperrors.ErrInvalidRef.WithMessage("store is not active")
		}

	case models.OtpPurposeLogin:
		var user models.User
		if err := s.db.Where("phone = ?", phone).First(&user).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.ErrNotFound.WithMessage("user not found")
			}
			return nil, err
		}
		if user.Status != models.UserStatusActive {
			return nil, apperrors.ErrForbidden.WithMessage("account is not active")
		}

	default:
		return nil, apperrors.ErrValidation.WithMessage("unknown otp purpose")
	}

	if !s.limiter.Allow(ip + ":" + phone) {
		otpRequestsCounter.WithLabelValues(purpose, "rate_limited").Inc()
		return nil, apperrors.ErrRateLimited.WithMessage("too many otp requests, try again later")
	}

	var last models.OtpCode
	err := s.db.Where("phone = ?", phone).Order("created_at desc").First(&last).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err == nil {
		elapsed := time.Since(last.CreatedAt)
		if elapsed < OtpResendCooldown {
			remaining := int((OtpResendCooldown - elapsed).Seconds()) + 1
			otpRequestsCounter.WithLabelValues(purpose, "cooldown").Inc()
			return nil, apperrors.ErrRateLimited.WithMessage("please wait %d seconds before requesting a new code", remaining)
		}
	}

	code, err := generateOtpCode()
	if err != nil {
		return nil, err
	}

	record := models.OtpCode{
		Phone:     phone,
		CodeHash:  utils.HashOtp(s.cfg.OtpSalt, phone, code),
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(OtpTTL),
		Name:      name,
		StoreID:   storeID,
	}

	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	if err := s.notify.SendSms(ctx, phone, SmsTemplateOtp, map[string]string{"code": code}); err != nil {
		log.Printf("[Auth] otp dispatch failed for %s: %v", phone, err)
		s.db.Delete(&record)
		otpRequestsCounter.WithLabelValues(purpose, "delivery_error").Inc()
		return nil, apperrors.ErrDelivery.WithMessage("failed to deliver verification code")
	}

	otpRequestsCounter.WithLabelValues(purpose, "ok").Inc()

	return &OtpIssueResult{
		Phone:          phone,
		ExpiresIn:      int(OtpTTL.Seconds()),
		ResendCooldown: int(OtpResendCooldown.Seconds()),
	}, nil
}

// SessionResult is the outcome of a successful customer authentication.
type SessionResult struct {
	User      *models.User  `json:"user"`
	Store     *models.Store `json:"store,omitempty"`
	Token     string        `json:"token"`
	ExpiresIn int           `json:"expires_in"`
	IsNewUser bool          `json:"is_new_user"`
}

// VerifyOtp checks the submitted code against the newest unused record,
// enforcing the per-code attempt limit, and issues a customer session.
// For register-purpose codes the user record is created here.
func (s *AuthService) VerifyOtp(phone, code string) (*SessionResult, error) {
	var record models.OtpCode
	err := s.db.Where("phone = ? AND used = ?", phone, false).
		Order("created_at desc").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound.WithMessage("verification code not found")
		}
		return nil, err
	}

	if record.Attempts >= OtpMaxAttempts {
		return nil, apperrors.ErrRateLimited.WithMessage("too many failed attempts, request a new code")
	}

	if record.Expired(time.Now()) {
		return nil, apperrors.ErrValidation.WithMessage("verification code expired")
	}

	if !utils.CheckOtp(s.cfg.OtpSalt, phone, code, record.CodeHash) {
		if err := s.db.Model(&record).UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return nil, err
		}
		if record.Attempts+1 >= OtpMaxAttempts {
			return nil, apperrors.ErrRateLimited.WithMessage("too many failed attempts, request a new code")
		}
		return nil, apperrors.ErrValidation.WithMessage("invalid verification code")
	}

	now := time.Now()
	if err := s.db.Model(&record).Updates(map[string]interface{}{"used": true, "used_at": now}).Error; err != nil {
		return nil, err
	}

	var user models.User
	isNew := false

	switch record.Purpose {
	case models.OtpPurposeRegister:
		err := s.db.Where("phone = ?", phone).First(&user).Error
		if err == gorm.ErrRecordNotFound {
			user = models.User{
				Phone:   phone,
				Name:    record.Name,
				Status:  models.UserStatusActive,
				StoreID: record.StoreID,
			}
			if err := s.db.Create(&user).Error; err != nil {
				return nil, err
			}
			isNew = true
		} else if err != nil {
			return nil, err
		}
	default:
		if err := s.db.Where("phone = ?", phone).First(&user).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.ErrNotFound.WithMessage("user not found")
			}
			return nil, err
		}
	}

	token, err := utils.GenerateToken(s.cfg.JWTSecret, utils.Identity{
		SubjectID: user.ID,
		Phone:     user.Phone,
		Name:      user.Name,
		Role:      utils.RoleCustomer,
		StoreID:   user.StoreID,
	}, s.cfg.TokenExpires)
	if err != nil {
		return nil, err
	}

	result := &SessionResult{
		User:      &user,
		Token:     token,
		ExpiresIn: int(s.cfg.TokenExpires.Seconds()),
		IsNewUser: isNew,
	}

	if user.StoreID != nil {
		var store models.Store
		if err := s.db.First(&store, "id = ?", *user.StoreID).Error; err == nil {
			result.Store = &store
		}
	}

	return result, nil
}

// AdminSessionResult is the outcome of a successful admin login.
type AdminSessionResult struct {
	Admin       *models.Admin `json:"admin"`
	Store       *models.Store `json:"store,omitempty"`
	Token       string        `json:"token"`
	ExpiresIn   int           `json:"expires_in"`
	Permissions []string      `json:"permissions"`
}

// AdminLogin authenticates an admin by phone and password, applying the
// failed-attempt lockout policy. Accounts still carrying a legacy unsalted
// hash are migrated to bcrypt on their first successful login.
func (s *AuthService) AdminLogin(phone, password string) (*AdminSessionResult, error) {
	var admin models.Admin
	if err := s.db.Where("phone = ?", phone).First(&admin).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound.WithMessage("admin not found")
		}
		return nil, err
	}

	if admin.Status != "active" {
		return nil, apperrors.ErrNotFound.WithMessage("admin not found")
	}

	now := time.Now()
	if admin.LockedUntil != nil && admin.LockedUntil.After(now) {
		return nil, apperrors.ErrLocked.WithMessage("account locked until %s", admin.LockedUntil.Format(time.RFC3339))
	}

	matched := false
	legacy := utils.IsLegacyHash(admin.PasswordHash)
	if legacy {
		matched = utils.CheckLegacyPassword(admin.PasswordHash, password)
	} else {
		matched = utils.CheckPassword(admin.PasswordHash, password)
	}

	if !matched {
		admin.FailedAttempts++
		updates := map[string]interface{}{"failed_attempts": admin.FailedAttempts}
		if admin.FailedAttempts >= LockoutThreshold {
			lockedUntil := now.Add(LockoutDuration)
			updates["locked_until"] = lockedUntil
		}
		if err := s.db.Model(&admin).Updates(updates).Error; err != nil {
			return nil, err
		}

		if admin.FailedAttempts >= LockoutThreshold {
			return nil, apperrors.ErrLocked.WithMessage("account locked for %d minutes after repeated failures", int(LockoutDuration.Minutes()))
		}
		remaining := LockoutThreshold - admin.FailedAttempts
		return nil, apperrors.ErrUnauthorized.WithMessage("invalid credentials, %d attempts remaining", remaining)
	}

	updates := map[string]interface{}{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
	}

	// One-time migration off the legacy scheme.
	if legacy {
		if newHash, err := utils.HashPassword(password); err == nil {
			updates["password_hash"] = newHash
		}
	}

	if err := s.db.Model(&admin).Updates(updates).Error; err != nil {
		return nil, err
	}

	loginRecord := models.OperationRecord{
		UserID:  admin.ID,
		StoreID: admin.StoreID,
		Action:  models.ActionLogin,
	}
	if err := s.db.Create(&loginRecord).Error; err != nil {
		log.Printf("[Auth] failed to record admin login: %v", err)
	}

	permissions := admin.Permissions()
	token, err := utils.GenerateToken(s.cfg.JWTSecret, utils.Identity{
		SubjectID:   admin.ID,
		Phone:       admin.Phone,
		Name:        admin.Name,
		Role:        admin.Role,
		StoreID:     admin.StoreID,
		Permissions: permissions,
	}, s.cfg.AdminTokenExpires)
	if err != nil {
		return nil, err
	}

	result := &AdminSessionResult{
		Admin:       &admin,
		Token:       token,
		ExpiresIn:   int(s.cfg.AdminTokenExpires.Seconds()),
		Permissions: permissions,
	}

	if admin.StoreID != nil {
		var store models.Store
		if err := s.db.First(&store, "id = ?", *admin.StoreID).Error; err == nil {
			result.Store = &store
		}
	}

	return result, nil
}

func generateOtpCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
