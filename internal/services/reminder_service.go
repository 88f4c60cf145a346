package services

import (
	"context"
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/muzhihao1/yeslocker-server/internal/models"
)

// Sweep policy.
const (
	InactivityThreshold = 90 * 24 * time.Hour
	ReminderDedupWindow = 7 * 24 * time.Hour

	// Pause between users so the SMS provider is not flooded.
	sweepUserDelay = time.Second
)

// ReminderService scans approved assignments for long-inactive lockers
// and nudges their holders over SMS and in-app notification.
type ReminderService struct {
	db     *gorm.DB
	notify *NotifyService

	// userDelay is overridable so tests don't sleep.
	userDelay time.Duration
}

// NewReminderService constructs a ReminderService.
func NewReminderService(db *gorm.DB, notify *NotifyService) *ReminderService {
	return &ReminderService{db: db, notify: notify, userDelay: sweepUserDelay}
}

// SweepReport summarizes one sweep run.
type SweepReport struct {
	Candidates int `json:"candidates"`
	Processed  int `json:"processed"`
	Succeeded  int `json:"succeeded"`
}

// Sweep finds approved applications whose lockers saw no store/retrieve
// activity beyond the threshold and dispatches reminders, deduplicated
// per channel within the rolling window. A failure for one user or one
// channel never aborts the rest of the batch.
func (s *ReminderService) Sweep(ctx context.Context) (*SweepReport, error) {
	sweepRunsCounter.Inc()

	var applications []models.Application
	err := s.db.Where("status = ?", models.ApplicationStatusApproved).Find(&applications).Error
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Candidates: len(applications)}
	sweepCandidatesGauge.Set(float64(len(applications)))

	now := time.Now()
	for i, application := range applications {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		if i > 0 && s.userDelay > 0 {
			time.Sleep(s.userDelay)
		}

		lastActivity, err := s.lastActivity(&application)
		if err != nil {
			log.Printf("[Reminder] activity lookup failed for application %s: %v", application.ID, err)
			continue
		}

		inactive := now.Sub(lastActivity)
		if inactive < InactivityThreshold {
			continue
		}
		report.Processed++

		days := int(inactive.Hours() / 24)
		if s.remindUser(ctx, &application, days) {
			report.Succeeded++
		}
	}

	log.Printf("[Reminder] sweep done: candidates=%d processed=%d succeeded=%d",
		report.Candidates, report.Processed, report.Succeeded)
	return report, nil
}

// lastActivity returns the newest store/retrieve record timestamp for the
// assignment, falling back to the approval time when none exists.
func (s *ReminderService) lastActivity(application *models.Application) (time.Time, error) {
	var record models.OperationRecord
	err := s.db.Where("user_id = ? AND locker_id = ? AND action IN ?",
		application.UserID, application.LockerID,
		[]string{models.ActionStore, models.ActionRetrieve}).
		Order("created_at desc").
		First(&record).Error
	if err == nil {
		return record.CreatedAt, nil
	}
	if err != gorm.ErrRecordNotFound {
		return time.Time{}, err
	}

	if application.ReviewedAt != nil {
		return *application.ReviewedAt, nil
	}
	return application.CreatedAt, nil
}

// remindUser dispatches both channels independently and reports whether
// at least one send succeeded or was already satisfied.
func (s *ReminderService) remindUser(ctx context.Context, application *models.Application, daysInactive int) bool {
	var user models.User
	if err := s.db.First(&user, "id = ?", application.UserID).Error; err != nil {
		log.Printf("[Reminder] user lookup failed for application %s: %v", application.ID, err)
		return false
	}

	anyOK := false

	sent, err := s.notify.RecentReminderExists(user.ID, models.ReminderTypeSms, ReminderDedupWindow)
	if err != nil {
		log.Printf("[Reminder] sms dedup check failed for user %s: %v", user.ID, err)
	} else if sent {
		anyOK = true
	} else {
		smsErr := s.notify.SendSms(ctx, user.Phone, SmsTemplateInactive, map[string]string{
			"days": strconv.Itoa(daysInactive),
		})
		if smsErr != nil {
			log.Printf("[Reminder] sms send failed for user %s: %v", user.ID, smsErr)
		} else {
			anyOK = true
		}
		if err := s.notify.RecordReminder(user.ID, application.LockerID, models.ReminderTypeSms, smsErr == nil); err != nil {
			log.Printf("[Reminder] sms reminder record failed for user %s: %v", user.ID, err)
		}
	}

	sent, err = s.notify.RecentReminderExists(user.ID, models.ReminderTypeNotification, ReminderDedupWindow)
	if err != nil {
		log.Printf("[Reminder] notification dedup check failed for user %s: %v", user.ID, err)
	} else if sent {
		anyOK = true
	} else {
		notifErr := s.notify.CreateNotification(user.ID, "储物柜长期未使用提醒",
			"您的储物柜已超过 "+strconv.Itoa(daysInactive)+" 天未使用，请及时存取或归还钥匙。", "reminder")
		if notifErr != nil {
			log.Printf("[Reminder] in-app notification failed for user %s: %v", user.ID, notifErr)
		} else {
			anyOK = true
		}
		if err := s.notify.RecordReminder(user.ID, application.LockerID, models.ReminderTypeNotification, notifErr == nil); err != nil {
			log.Printf("[Reminder] notification reminder record failed for user %s: %v", user.ID, err)
		}
	}

	return anyOK
}

// Run executes Sweep on a fixed interval until the context is cancelled.
func (s *ReminderService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Printf("[Reminder] sweep failed: %v", err)
			}
		}
	}
}
