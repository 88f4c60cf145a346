package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/muzhihao1/yeslocker-server/internal/apperrors"
	"github.com/muzhihao1/yeslocker-server/internal/services"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type otpRequest struct {
	Phone   string `json:"phone"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	StoreID string `json:"store_id"`
}

// RequestOtp sends a one-time code for login or registration.
func (h *AuthHandler) RequestOtp(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithMessage("invalid request body")
	}

	var storeID *uuid.UUID
	if req.StoreID != "" {
		id, err := uuid.Parse(req.StoreID)
		if err != nil {
			return apperrors.ErrValidation.WithMessage("invalid store_id")
		}
		storeID = &id
	}

	result, err := h.auth.RequestOtp(c.UserContext(), c.IP(), req.Phone, req.Type, req.Name, storeID)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

type otpVerifyRequest struct {
	Phone string `json:"phone"`
	Otp   string `json:"otp"`
}

// VerifyOtp validates the submitted code and issues a session token.
func (h *AuthHandler) VerifyOtp(c *fiber.Ctx) error {
	var req otpVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithMessage("invalid request body")
	}

	if req.Phone == "" || req.Otp == "" {
		return apperrors.ErrValidation.WithMessage("phone and otp are required")
	}

	result, err := h.auth.VerifyOtp(req.Phone, req.Otp)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

type adminLoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// AdminLogin authenticates staff by phone and password.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req adminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithMessage("invalid request body")
	}

	if req.Phone == "" || req.Password == "" {
		return apperrors.ErrValidation.WithMessage("phone and password are required")
	}

	result, err := h.auth.AdminLogin(req.Phone, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(result)
}
