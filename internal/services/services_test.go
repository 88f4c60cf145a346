package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/muzhihao1/yeslocker-server/internal/config"
	"github.com/muzhihao1/yeslocker-server/internal/database"
	"github.com/muzhihao1/yeslocker-server/internal/models"
	"github.com/muzhihao1/yeslocker-server/internal/utils"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:       config.EnvDevelopment,
		JWTSecret:         "test-secret",
		OtpSalt:           "test-salt",
		TokenExpires:      time.Hour,
		AdminTokenExpires: time.Hour,
	}
}

func createStore(t *testing.T, db *gorm.DB, name, status string) *models.Store {
	store := &models.Store{Name: name, Address: "测试路 1 号", Status: status}
	require.NoError(t, db.Create(store).Error)
	return store
}

func createLocker(t *testing.T, db *gorm.DB, storeID uuid.UUID, number, status string) *models.Locker {
	locker := &models.Locker{StoreID: storeID, Number: number, Status: status}
	require.NoError(t, db.Create(locker).Error)
	return locker
}

func createUser(t *testing.T, db *gorm.DB, phone, name string) *models.User {
	user := &models.User{Phone: phone, Name: name, Status: models.UserStatusActive}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createAdmin(t *testing.T, db *gorm.DB, phone, role string, storeID *uuid.UUID, password string) *models.Admin {
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)

	admin := &models.Admin{
		Phone:        phone,
		Name:         "管理员",
		Role:         role,
		StoreID:      storeID,
		PasswordHash: hash,
		Status:       "active",
	}
	require.NoError(t, db.Create(admin).Error)
	return admin
}

// failingSmsSender always errors, for exercising delivery failures.
type failingSmsSender struct {
	attempts int
}

func (f *failingSmsSender) SendSms(ctx context.Context, phone, template string, params map[string]string) error {
	f.attempts++
	return errors.New("provider unreachable")
}
