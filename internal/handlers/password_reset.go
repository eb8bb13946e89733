package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/farmfresh/internal/services"
)

// PasswordResetHandler manages forgot-password endpoints.
type PasswordResetHandler struct {
	auth *services.AuthService
}

// NewPasswordResetHandler constructs a PasswordResetHandler.
func NewPasswordResetHandler(auth *services.AuthService) *PasswordResetHandler {
	return &PasswordResetHandler{auth: auth}
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

// ForgotPassword starts the reset flow. The reply does not reveal whether
// the email has an account.
func (h *PasswordResetHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody()
	}

	msg, err := h.auth.ForgotPassword(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, nil, msg)
}

type resetPasswordRequest struct {
	Token       string `json:"token" form:"token"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

// ResetPassword consumes a reset token and sets the new password.
func (h *PasswordResetHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody()
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, nil, "Password has been reset successfully")
}
