package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/muzhihao1/yeslocker-server/internal/apperrors"
	"github.com/muzhihao1/yeslocker-server/internal/middleware"
	"github.com/muzhihao1/yeslocker-server/internal/models"
	"github.com/muzhihao1/yeslocker-server/internal/utils"
)

// ProfileHandler serves the authenticated user's own data.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile returns the user record with current store and locker.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", identity.SubjectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.ErrNotFound.WithMessage("user not found")
		}
		return err
	}

	resp := fiber.Map{"user": user}

	if user.StoreID != nil {
		var store models.Store
		if err := h.db.First(&store, "id = ?", *user.StoreID).Error; err == nil {
			resp["store"] = store
		}
	}

	if user.LockerID != nil {
		var locker models.Locker
		if err := h.db.First(&locker, "id = ?", *user.LockerID).Error; err == nil {
			resp["locker"] = locker
		}
	}

	return c.JSON(resp)
}

// ListNotifications returns the user's in-app inbox, newest first.
func (h *ProfileHandler) ListNotifications(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	pg := utils.ParsePagination(c)

	var notifications []models.Notification
	err := h.db.Where("user_id = ?", identity.SubjectID).
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&notifications).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}
