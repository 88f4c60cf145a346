package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/muzhihao1/yeslocker-server/internal/models"
)

// NotifyService creates in-app notifications and reminder dedup records.
// SMS delivery goes through the injected SmsSender.
type NotifyService struct {
	db  *gorm.DB
	sms SmsSender
}

// NewNotifyService constructs a NotifyService.
func NewNotifyService(db *gorm.DB, sms SmsSender) *NotifyService {
	return &NotifyService{db: db, sms: sms}
}

// SendSms delivers a templated SMS through the configured sender.
func (s *NotifyService) SendSms(ctx context.Context, phone, template string, params map[string]string) error {
	return s.sms.SendSms(ctx, phone, template, params)
}

// CreateNotification stores an in-app inbox entry for the user.
func (s *NotifyService) CreateNotification(userID uuid.UUID, title, content, notifType string) error {
	notification := models.Notification{
		UserID:  userID,
		Title:   title,
		Content: content,
		Type:    notifType,
	}
	return s.db.Create(&notification).Error
}

// RecordReminder appends a reminder record used for send deduplication.
func (s *NotifyService) RecordReminder(userID uuid.UUID, lockerID *uuid.UUID, reminderType string, success bool) error {
	reminder := models.Reminder{
		UserID:   userID,
		LockerID: lockerID,
		Type:     reminderType,
		SentAt:   time.Now(),
		Success:  success,
	}
	return s.db.Create(&reminder).Error
}

// RecentReminderExists reports whether a successful reminder of the given
// type was sent to the user within the window.
func (s *NotifyService) RecentReminderExists(userID uuid.UUID, reminderType string, window time.Duration) (bool, error) {
	var count int64
	err := s.db.Model(&models.Reminder{}).
		Where("user_id = ? AND type = ? AND success = ? AND sent_at > ?",
			userID, reminderType, true, time.Now().Add(-window)).
		Count(&count).Error
	return count > 0, err
}
