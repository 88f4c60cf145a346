package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/muzhihao1/yeslocker-server/internal/apperrors"
	"github.com/muzhihao1/yeslocker-server/internal/middleware"
	"github.com/muzhihao1/yeslocker-server/internal/services"
	"github.com/muzhihao1/yeslocker-server/internal/utils"
)

// ApplicationHandler manages locker application endpoints.
type ApplicationHandler struct {
	applications *services.ApplicationService
}

// NewApplicationHandler constructs an ApplicationHandler.
func NewApplicationHandler(applications *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

type submitRequest struct {
	StoreID         string `json:"store_id"`
	RequestedNumber string `json:"requested_locker_number"`
}

// Submit creates a pending locker application for the authenticated user.
func (h *ApplicationHandler) Submit(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithMessage("invalid request body")
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return apperrors.ErrValidation.WithMessage("invalid store_id")
	}

	result, err := h.applications.Submit(identity.SubjectID, storeID, req.RequestedNumber)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// List returns applications for the admin panel.
func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	pg := utils.ParsePagination(c)
	items, total, err := h.applications.List(identity, c.Query("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"applications": items,
		"pagination": fiber.Map{
			"total":  total,
			"limit":  pg.Limit,
			"offset": pg.Offset,
		},
	})
}

type decideRequest struct {
	ApplicationID   string `json:"application_id"`
	Action          string `json:"action"`
	AssignedLocker  string `json:"assigned_locker_id"`
	RejectionReason string `json:"rejection_reason"`
}

// Decide approves or rejects a pending application.
func (h *ApplicationHandler) Decide(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithMessage("invalid request body")
	}

	applicationID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		return apperrors.ErrValidation.WithMessage("invalid application_id")
	}

	switch req.Action {
	case "approve":
		lockerID, err := uuid.Parse(req.AssignedLocker)
		if err != nil {
			return apperrors.ErrValidation.WithMessage("assigned_locker_id is required for approval")
		}
		if err := h.applications.Approve(c.UserContext(), applicationID, identity.SubjectID, lockerID); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"application_id": applicationID, "status": "approved"})

	case "reject":
		if err := h.applications.Reject(c.UserContext(), applicationID, identity.SubjectID, req.RejectionReason); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"application_id": applicationID, "status": "rejected"})

	default:
		return apperrors.ErrValidation.WithMessage("action must be approve or reject")
	}
}

type operationRequest struct {
	ActionType string `json:"action_type"`
	Notes      string `json:"notes"`
}

// RecordOperation appends a store/retrieve record for the user's locker.
func (h *ApplicationHandler) RecordOperation(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}

	var req operationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithMessage("invalid request body")
	}

	result, err := h.applications.RecordOperation(identity.SubjectID, req.ActionType, req.Notes)
	if err != nil {
		return err
	}

	return c.JSON(result)
}
