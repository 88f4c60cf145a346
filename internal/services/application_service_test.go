package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/muzhihao1/yeslocker-server/internal/apperrors"
	"github.com/muzhihao1/yeslocker-server/internal/models"
	"github.com/muzhihao1/yeslocker-server/internal/utils"
)

func newApplicationService(db *gorm.DB, sms SmsSender) *ApplicationService {
	if sms == nil {
		sms = &MockSmsSender{}
	}
	return NewApplicationService(db, NewNotifyService(db, sms))
}

func TestSubmitCreatesPendingApplication(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	user := createUser(t, db, "13800000001", "王五")

	result, err := svc.Submit(user.ID, store.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, result.Status)
	assert.Equal(t, "国贸店", result.StoreName)

	var record models.OperationRecord
	require.NoError(t, db.Where("user_id = ? AND action = ?", user.ID, models.ActionApply).First(&record).Error)

	var reminder models.Reminder
	require.NoError(t, db.Where("user_id = ? AND type = ?", user.ID, models.ReminderTypeApprovalNeeded).First(&reminder).Error)
}

func TestSubmitRejectsSecondPendingApplication(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	user := createUser(t, db, "13800000001", "王五")

	_, err := svc.Submit(user.ID, store.ID, "")
	require.NoError(t, err)

	_, err = svc.Submit(user.ID, store.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	var count int64
	require.NoError(t, db.Model(&models.Application{}).
		Where("user_id = ? AND status = ?", user.ID, models.ApplicationStatusPending).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubmitRejectsUserHoldingLocker(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	locker := createLocker(t, db, store.ID, "A-01", models.LockerStatusOccupied)

	user := createUser(t, db, "13800000001", "王五")
	require.NoError(t, db.Model(user).Update("locker_id", locker.ID).Error)

	_, err := svc.Submit(user.ID, store.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestSubmitValidatesStoreAndHint(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	inactive := createStore(t, db, "停业店", models.StoreStatusInactive)
	active := createStore(t, db, "国贸店", models.StoreStatusActive)
	createLocker(t, db, active.ID, "A-01", models.LockerStatusMaintenance)
	user := createUser(t, db, "13800000001", "王五")

	_, err := svc.Submit(user.ID, inactive.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRef))

	// Hinted locker does not exist.
	_, err = svc.Submit(user.ID, active.ID, "Z-99")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRef))

	// Hinted locker exists but is not available.
	_, err = svc.Submit(user.ID, active.ID, "A-01")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestApproveAssignsLocker(t *testing.T) {
	db := setupTestDB(t)
	sms := &MockSmsSender{}
	svc := newApplicationService(db, sms)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	locker := createLocker(t, db, store.ID, "A-01", models.LockerStatusAvailable)
	user := createUser(t, db, "13800000001", "王五")
	admin := createAdmin(t, db, "13900000001", models.RoleStoreAdmin, &store.ID, "pass1234")

	result, err := svc.Submit(user.ID, store.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), result.ApplicationID, admin.ID, locker.ID))

	var application models.Application
	require.NoError(t, db.First(&application, "id = ?", result.ApplicationID).Error)
	assert.Equal(t, models.ApplicationStatusApproved, application.Status)
	require.NotNil(t, application.LockerID)
	assert.Equal(t, locker.ID, *application.LockerID)
	require.NotNil(t, application.ReviewedBy)
	assert.Equal(t, admin.ID, *application.ReviewedBy)
	assert.NotNil(t, application.ReviewedAt)

	var updatedLocker models.Locker
	require.NoError(t, db.First(&updatedLocker, "id = ?", locker.ID).Error)
	assert.Equal(t, models.LockerStatusOccupied, updatedLocker.Status)
	require.NotNil(t, updatedLocker.UserID)
	assert.Equal(t, user.ID, *updatedLocker.UserID)

	var updatedUser models.User
	require.NoError(t, db.First(&updatedUser, "id = ?", user.ID).Error)
	require.NotNil(t, updatedUser.LockerID)
	assert.Equal(t, locker.ID, *updatedUser.LockerID)

	// Applicant got both channels.
	require.Len(t, sms.Sent, 1)
	assert.Equal(t, SmsTemplateApproved, sms.Sent[0].Template)

	var notification models.Notification
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&notification).Error)
}

func TestApproveWrongStoreAdminForbidden(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	storeA := createStore(t, db, "国贸店", models.StoreStatusActive)
	storeB := createStore(t, db, "望京店", models.StoreStatusActive)
	locker := createLocker(t, db, storeA.ID, "A-01", models.LockerStatusAvailable)
	user := createUser(t, db, "13800000001", "王五")
	otherAdmin := createAdmin(t, db, "13900000002", models.RoleStoreAdmin, &storeB.ID, "pass1234")

	result, err := svc.Submit(user.ID, storeA.ID, "")
	require.NoError(t, err)

	err = svc.Approve(context.Background(), result.ApplicationID, otherAdmin.ID, locker.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestApproveOperatorForbidden(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	locker := createLocker(t, db, store.ID, "A-01", models.LockerStatusAvailable)
	user := createUser(t, db, "13800000001", "王五")
	operator := createAdmin(t, db, "13900000003", models.RoleOperator, &store.ID, "pass1234")

	result, err := svc.Submit(user.ID, store.ID, "")
	require.NoError(t, err)

	err = svc.Approve(context.Background(), result.ApplicationID, operator.ID, locker.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestApproveLoserGetsConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	locker := createLocker(t, db, store.ID, "A-01", models.LockerStatusAvailable)
	admin := createAdmin(t, db, "13900000001", models.RoleSuperAdmin, nil, "pass1234")

	first := createUser(t, db, "13800000001", "王五")
	second := createUser(t, db, "13800000002", "赵六")

	// Both users hinted the same locker; the hint reserves nothing.
	resultA, err := svc.Submit(first.ID, store.ID, "A-01")
	require.NoError(t, err)
	resultB, err := svc.Submit(second.ID, store.ID, "A-01")
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), resultA.ApplicationID, admin.ID, locker.ID))

	err = svc.Approve(context.Background(), resultB.ApplicationID, admin.ID, locker.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	// The losing application is still pending and decidable with another locker.
	var application models.Application
	require.NoError(t, db.First(&application, "id = ?", resultB.ApplicationID).Error)
	assert.Equal(t, models.ApplicationStatusPending, application.Status)
}

func TestApproveAlreadyDecidedConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	lockerA := createLocker(t, db, store.ID, "A-01", models.LockerStatusAvailable)
	lockerB := createLocker(t, db, store.ID, "A-02", models.LockerStatusAvailable)
	user := createUser(t, db, "13800000001", "王五")
	admin := createAdmin(t, db, "13900000001", models.RoleSuperAdmin, nil, "pass1234")

	result, err := svc.Submit(user.ID, store.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), result.ApplicationID, admin.ID, lockerA.ID))

	err = svc.Approve(context.Background(), result.ApplicationID, admin.ID, lockerB.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestRejectRequiresReason(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	user := createUser(t, db, "13800000001", "王五")
	admin := createAdmin(t, db, "13900000001", models.RoleSuperAdmin, nil, "pass1234")

	result, err := svc.Submit(user.ID, store.ID, "")
	require.NoError(t, err)

	err = svc.Reject(context.Background(), result.ApplicationID, admin.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	// No state change happened.
	var application models.Application
	require.NoError(t, db.First(&application, "id = ?", result.ApplicationID).Error)
	assert.Equal(t, models.ApplicationStatusPending, application.Status)
}

func TestRejectStampsReviewerAndReason(t *testing.T) {
	db := setupTestDB(t)
	sms := &MockSmsSender{}
	svc := newApplicationService(db, sms)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	user := createUser(t, db, "13800000001", "王五")
	admin := createAdmin(t, db, "13900000001", models.RoleStoreAdmin, &store.ID, "pass1234")

	result, err := svc.Submit(user.ID, store.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.Reject(context.Background(), result.ApplicationID, admin.ID, "门店柜满"))

	var application models.Application
	require.NoError(t, db.First(&application, "id = ?", result.ApplicationID).Error)
	assert.Equal(t, models.ApplicationStatusRejected, application.Status)
	assert.Equal(t, "门店柜满", application.RejectReason)
	require.NotNil(t, application.ReviewedBy)
	assert.Equal(t, admin.ID, *application.ReviewedBy)

	require.Len(t, sms.Sent, 1)
	assert.Equal(t, SmsTemplateRejected, sms.Sent[0].Template)
}

func TestNotificationFailureDoesNotRollBackApproval(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, &failingSmsSender{})

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	locker := createLocker(t, db, store.ID, "A-01", models.LockerStatusAvailable)
	user := createUser(t, db, "13800000001", "王五")
	admin := createAdmin(t, db, "13900000001", models.RoleSuperAdmin, nil, "pass1234")

	result, err := svc.Submit(user.ID, store.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), result.ApplicationID, admin.ID, locker.ID))

	var application models.Application
	require.NoError(t, db.First(&application, "id = ?", result.ApplicationID).Error)
	assert.Equal(t, models.ApplicationStatusApproved, application.Status)
}

func TestRecordOperationRequiresLocker(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	user := createUser(t, db, "13800000001", "王五")

	_, err := svc.RecordOperation(user.ID, models.ActionStore, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	_, err = svc.RecordOperation(user.ID, "open", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestRecordOperationAppendsRecords(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	store := createStore(t, db, "国贸店", models.StoreStatusActive)
	locker := createLocker(t, db, store.ID, "A-01", models.LockerStatusAvailable)
	user := createUser(t, db, "13800000001", "王五")
	admin := createAdmin(t, db, "13900000001", models.RoleSuperAdmin, nil, "pass1234")

	result, err := svc.Submit(user.ID, store.ID, "")
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), result.ApplicationID, admin.ID, locker.ID))

	// Store and retrieve do not have to alternate.
	opA, err := svc.RecordOperation(user.ID, models.ActionStore, "存包")
	require.NoError(t, err)
	assert.Equal(t, "A-01", opA.LockerNumber)
	assert.Equal(t, "国贸店", opA.StoreName)

	_, err = svc.RecordOperation(user.ID, models.ActionStore, "")
	require.NoError(t, err)
	_, err = svc.RecordOperation(user.ID, models.ActionRetrieve, "")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OperationRecord{}).
		Where("user_id = ? AND action IN ?", user.ID, []string{models.ActionStore, models.ActionRetrieve}).
		Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestListScopesStoreAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := newApplicationService(db, nil)

	storeA := createStore(t, db, "国贸店", models.StoreStatusActive)
	storeB := createStore(t, db, "望京店", models.StoreStatusActive)
	userA := createUser(t, db, "13800000001", "王五")
	userB := createUser(t, db, "13800000002", "赵六")

	_, err := svc.Submit(userA.ID, storeA.ID, "")
	require.NoError(t, err)
	_, err = svc.Submit(userB.ID, storeB.ID, "")
	require.NoError(t, err)

	scoped := &utils.Identity{Role: models.RoleStoreAdmin, StoreID: &storeA.ID}
	items, total, err := svc.List(scoped, "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, storeA.ID, items[0].Application.StoreID)
	assert.Equal(t, "王五", items[0].UserName)

	super := &utils.Identity{Role: models.RoleSuperAdmin}
	_, total, err = svc.List(super, "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = svc.List(super, models.ApplicationStatusPending, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
