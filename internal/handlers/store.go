package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/muzhihao1/yeslocker-server/internal/apperrors"
	"github.com/muzhihao1/yeslocker-server/internal/models"
)

// StoreHandler serves store and locker listings.
type StoreHandler struct {
	db *gorm.DB
}

// NewStoreHandler constructs a StoreHandler.
func NewStoreHandler(db *gorm.DB) *StoreHandler {
	return &StoreHandler{db: db}
}

type lockerCounts struct {
	Total       int64 `json:"total"`
	Available   int64 `json:"available"`
	Occupied    int64 `json:"occupied"`
	Maintenance int64 `json:"maintenance"`
}

// List returns all stores with per-store locker stats, or a single store
// with its lockers when store_id is given.
func (h *StoreHandler) List(c *fiber.Ctx) error {
	if storeIDParam := c.Query("store_id"); storeIDParam != "" {
		storeID, err := uuid.Parse(storeIDParam)
		if err != nil {
			return apperrors.ErrValidation.WithMessage("invalid store_id")
		}
		return h.single(c, storeID)
	}

	var stores []models.Store
	if err := h.db.Order("created_at asc").Find(&stores).Error; err != nil {
		return err
	}

	out := make([]fiber.Map, 0, len(stores))
	for _, store := range stores {
		counts, err := h.countLockers(store.ID)
		if err != nil {
			return err
		}
		out = append(out, fiber.Map{
			"store":   store,
			"lockers": counts,
		})
	}

	return c.JSON(fiber.Map{"stores": out})
}

func (h *StoreHandler) single(c *fiber.Ctx, storeID uuid.UUID) error {
	var store models.Store
	if err := h.db.First(&store, "id = ?", storeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.ErrNotFound.WithMessage("store not found")
		}
		return err
	}

	var lockers []models.Locker
	if err := h.db.Where("store_id = ?", storeID).Order("number asc").Find(&lockers).Error; err != nil {
		return err
	}

	counts, err := h.countLockers(storeID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"store":   store,
		"lockers": lockers,
		"counts":  counts,
	})
}

func (h *StoreHandler) countLockers(storeID uuid.UUID) (*lockerCounts, error) {
	counts := &lockerCounts{}

	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	err := h.db.Model(&models.Locker{}).
		Select("status, count(*) as count").
		Where("store_id = ?", storeID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case models.LockerStatusAvailable:
			counts.Available = row.Count
		case models.LockerStatusOccupied:
			counts.Occupied = row.Count
		case models.LockerStatusMaintenance:
			counts.Maintenance = row.Count
		}
	}

	return counts, nil
}
