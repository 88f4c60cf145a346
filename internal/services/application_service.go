package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/muzhihao1/yeslocker-server/internal/apperrors"
	"github.com/muzhihao1/yeslocker-server/internal/models"
	"github.com/muzhihao1/yeslocker-server/internal/utils"
)

// ApplicationService implements the locker application lifecycle:
// submit -> pending -> approve/reject, plus store/retrieve operations
// against an assigned locker.
type ApplicationService struct {
	db     *gorm.DB
	notify *NotifyService
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(db *gorm.DB, notify *NotifyService) *ApplicationService {
	return &ApplicationService{db: db, notify: notify}
}

// SubmitResult describes a newly created application.
type SubmitResult struct {
	ApplicationID uuid.UUID `json:"application_id"`
	StoreName     string    `json:"store_name"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Submit creates a pending application for the user at the given store.
// A requested locker number is advisory only: it is validated here but
// not reserved, and approval may assign a different locker.
func (s *ApplicationService) Submit(userID, storeID uuid.UUID, requestedNumber string) (*SubmitResult, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound.WithMessage("user not found")
		}
		return nil, err
	}

	if user.HasLocker() {
		return nil, apperrors.ErrConflict.WithMessage("user already has an assigned locker")
	}

	var pendingCount int64
	if err := s.db.Model(&models.Application{}).
		Where("user_id = ? AND status = ?", userID, models.ApplicationStatusPending).
		Count(&pendingCount).Error; err != nil {
		return nil, err
	}
	if pendingCount > 0 {
		return nil, apperrors.ErrConflict.WithMessage("user already has a pending application")
	}

	var store models.Store
	if err := s.db.First(&store, "id = ?", storeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound.WithMessage("store not found")
		}
		return nil, err
	}
	if store.Status != models.StoreStatusActive {
		return nil, apperrors.ErrInvalidRef.WithMessage("store is not active")
	}

	if requestedNumber != "" {
		var locker models.Locker
		err := s.db.Where("store_id = ? AND number = ?", storeID, requestedNumber).First(&locker).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.ErrInvalidRef.WithMessage("locker %s does not exist at this store", requestedNumber)
			}
			return nil, err
		}
		if locker.Status != models.LockerStatusAvailable {
			return nil, apperrors.ErrConflict.WithMessage("locker %s is not available", requestedNumber)
		}
	}

	application := models.Application{
		UserID:          userID,
		StoreID:         storeID,
		RequestedNumber: requestedNumber,
		Status:          models.ApplicationStatusPending,
	}
	if err := s.db.Create(&application).Error; err != nil {
		return nil, err
	}

	record := models.OperationRecord{
		UserID:  userID,
		StoreID: &storeID,
		Action:  models.ActionApply,
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("[Application] failed to append apply record: %v", err)
	}

	if err := s.notify.RecordReminder(userID, nil, models.ReminderTypeApprovalNeeded, true); err != nil {
		log.Printf("[Application] failed to enqueue approval reminder: %v", err)
	}

	applicationsCounter.WithLabelValues("submitted").Inc()

	return &SubmitResult{
		ApplicationID: application.ID,
		StoreName:     store.Name,
		Status:        application.Status,
		CreatedAt:     application.CreatedAt,
	}, nil
}

// Approve transitions a pending application to approved and assigns the
// locker to the applicant. The application, locker and user mutations run
// in one transaction so concurrent approvals of the same locker cannot
// both succeed. Notifications are best-effort and never roll it back.
func (s *ApplicationService) Approve(ctx context.Context, applicationID, adminID, lockerID uuid.UUID) error {
	admin, application, err := s.loadForReview(applicationID, adminID)
	if err != nil {
		return err
	}

	var locker models.Locker
	if err := s.db.First(&locker, "id = ?", lockerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.ErrNotFound.WithMessage("locker not found")
		}
		return err
	}
	if locker.StoreID != application.StoreID {
		return apperrors.ErrInvalidRef.WithMessage("locker belongs to a different store")
	}
	if locker.Status != models.LockerStatusAvailable {
		return apperrors.ErrConflict.WithMessage("locker is not available")
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Row-guarded update: the loser of a concurrent approval sees zero
		// affected rows and the whole transaction rolls back.
		res := tx.Model(&models.Locker{}).
			Where("id = ? AND status = ?", lockerID, models.LockerStatusAvailable).
			Updates(map[string]interface{}{
				"status":  models.LockerStatusOccupied,
				"user_id": application.UserID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrConflict.WithMessage("locker is no longer available")
		}

		res = tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", applicationID, models.ApplicationStatusPending).
			Updates(map[string]interface{}{
				"status":      models.ApplicationStatusApproved,
				"locker_id":   lockerID,
				"reviewed_by": admin.ID,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrConflict.WithMessage("application already decided")
		}

		return tx.Model(&models.User{}).
			Where("id = ?", application.UserID).
			Updates(map[string]interface{}{
				"locker_id": lockerID,
				"store_id":  application.StoreID,
			}).Error
	})
	if err != nil {
		return err
	}

	record := models.OperationRecord{
		UserID:   application.UserID,
		LockerID: &lockerID,
		StoreID:  &application.StoreID,
		Action:   models.ActionApprove,
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("[Application] failed to append approve record: %v", err)
	}

	applicationsCounter.WithLabelValues("approved").Inc()

	s.notifyDecision(ctx, application.UserID, "储物柜申请已通过",
		"您的储物柜申请已审核通过，柜号 "+locker.Number+"，请到门店使用。",
		SmsTemplateApproved, map[string]string{"locker_number": locker.Number})

	return nil
}

// Reject transitions a pending application to rejected with a mandatory reason.
func (s *ApplicationService) Reject(ctx context.Context, applicationID, adminID uuid.UUID, reason string) error {
	if reason == "" {
		return apperrors.ErrValidation.WithMessage("rejection reason is required")
	}

	admin, application, err := s.loadForReview(applicationID, adminID)
	if err != nil {
		return err
	}

	now := time.Now()
	res := s.db.Model(&models.Application{}).
		Where("id = ? AND status = ?", applicationID, models.ApplicationStatusPending).
		Updates(map[string]interface{}{
			"status":        models.ApplicationStatusRejected,
			"reject_reason": reason,
			"reviewed_by":   admin.ID,
			"reviewed_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConflict.WithMessage("application already decided")
	}

	record := models.OperationRecord{
		UserID:  application.UserID,
		StoreID: &application.StoreID,
		Action:  models.ActionReject,
		Note:    reason,
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("[Application] failed to append reject record: %v", err)
	}

	applicationsCounter.WithLabelValues("rejected").Inc()

	s.notifyDecision(ctx, application.UserID, "储物柜申请未通过",
		"您的储物柜申请未通过审核："+reason,
		SmsTemplateRejected, map[string]string{"reason": reason})

	return nil
}

// loadForReview checks the reviewing admin's authorization against the
// application's store before any mutation.
func (s *ApplicationService) loadForReview(applicationID, adminID uuid.UUID) (*models.Admin, *models.Application, error) {
	var admin models.Admin
	if err := s.db.First(&admin, "id = ?", adminID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperrors.ErrForbidden.WithMessage("admin not found")
		}
		return nil, nil, err
	}

	var application models.Application
	if err := s.db.First(&application, "id = ?", applicationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperrors.ErrNotFound.WithMessage("application not found")
		}
		return nil, nil, err
	}

	switch admin.Role {
	case models.RoleSuperAdmin:
	case models.RoleStoreAdmin:
		if admin.StoreID == nil || *admin.StoreID != application.StoreID {
			return nil, nil, apperrors.ErrForbidden.WithMessage("application belongs to another store")
		}
	default:
		return nil, nil, apperrors.ErrForbidden.WithMessage("role cannot decide applications")
	}

	if !application.IsPending() {
		return nil, nil, apperrors.ErrConflict.WithMessage("application already decided")
	}

	return &admin, &application, nil
}

func (s *ApplicationService) notifyDecision(ctx context.Context, userID uuid.UUID, title, content, template string, params map[string]string) {
	if err := s.notify.CreateNotification(userID, title, content, "application"); err != nil {
		log.Printf("[Application] in-app notification failed: %v", err)
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		log.Printf("[Application] user lookup for sms failed: %v", err)
		return
	}
	if err := s.notify.SendSms(ctx, user.Phone, template, params); err != nil {
		log.Printf("[Application] sms notification failed: %v", err)
	}
}

// OperationResult describes an appended store/retrieve record.
type OperationResult struct {
	RecordID     uuid.UUID `json:"record_id"`
	ActionType   string    `json:"action_type"`
	LockerNumber string    `json:"locker_number"`
	StoreName    string    `json:"store_name"`
	Timestamp    time.Time `json:"timestamp"`
}

// RecordOperation appends a store or retrieve record for the user's
// current locker. Repeated calls simply append more records; store and
// retrieve are not required to alternate.
func (s *ApplicationService) RecordOperation(userID uuid.UUID, action, note string) (*OperationResult, error) {
	if action != models.ActionStore && action != models.ActionRetrieve {
		return nil, apperrors.ErrValidation.WithMessage("action_type must be store or retrieve")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrNotFound.WithMessage("user not found")
		}
		return nil, err
	}
	if !user.HasLocker() {
		return nil, apperrors.ErrConflict.WithMessage("user has no assigned locker")
	}

	var locker models.Locker
	if err := s.db.First(&locker, "id = ?", *user.LockerID).Error; err != nil {
		return nil, err
	}
	if locker.Status != models.LockerStatusOccupied || locker.UserID == nil || *locker.UserID != userID {
		return nil, apperrors.ErrConflict.WithMessage("locker is not assigned to this user")
	}

	record := models.OperationRecord{
		UserID:   userID,
		LockerID: &locker.ID,
		StoreID:  &locker.StoreID,
		Action:   action,
		Note:     note,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	if err := s.notify.RecordReminder(userID, &locker.ID, models.ReminderTypeReturnKey, true); err != nil {
		log.Printf("[Application] failed to enqueue return-key reminder: %v", err)
	}

	var store models.Store
	storeName := ""
	if err := s.db.First(&store, "id = ?", locker.StoreID).Error; err == nil {
		storeName = store.Name
	}

	return &OperationResult{
		RecordID:     record.ID,
		ActionType:   action,
		LockerNumber: locker.Number,
		StoreName:    storeName,
		Timestamp:    record.CreatedAt,
	}, nil
}

// ApplicationListItem is one row of the admin review list.
type ApplicationListItem struct {
	Application models.Application `json:"application"`
	UserName    string             `json:"user_name"`
	UserPhone   string             `json:"user_phone"`
	StoreName   string             `json:"store_name"`
}

// List returns applications for the admin panel, scoped to the admin's
// own store for store_admin, newest first.
func (s *ApplicationService) List(admin *utils.Identity, status string, limit, offset int) ([]ApplicationListItem, int64, error) {
	query := s.db.Model(&models.Application{})

	if admin.Role == models.RoleStoreAdmin {
		if admin.StoreID == nil {
			return nil, 0, apperrors.ErrForbidden.WithMessage("store admin has no store assigned")
		}
		query = query.Where("store_id = ?", *admin.StoreID)
	}

	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var applications []models.Application
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&applications).Error; err != nil {
		return nil, 0, err
	}

	items := make([]ApplicationListItem, 0, len(applications))
	for _, application := range applications {
		item := ApplicationListItem{Application: application}

		var user models.User
		if err := s.db.First(&user, "id = ?", application.UserID).Error; err == nil {
			item.UserName = user.Name
			item.UserPhone = user.Phone
		}

		var store models.Store
		if err := s.db.First(&store, "id = ?", application.StoreID).Error; err == nil {
			item.StoreName = store.Name
		}

		items = append(items, item)
	}

	return items, total, nil
}
