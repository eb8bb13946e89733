package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/services"
	"github.com/example/farmfresh/internal/store"
	"github.com/example/farmfresh/internal/utils"
)

// UserHandler serves account reads and updates.
type UserHandler struct {
	auth *services.AuthService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(auth *services.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// GetUserByID returns the public view of one account.
func (h *UserHandler) GetUserByID(c *fiber.Ctx) error {
	user, err := h.auth.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, user.View(), "")
}

// GetUserByEmail looks an account up by email.
func (h *UserHandler) GetUserByEmail(c *fiber.Ctx) error {
	user, err := h.auth.GetByEmail(c.UserContext(), c.Params("email"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, user.View(), "")
}

// ListFarmers lists farmers newest first, paged when page or limit is given.
func (h *UserHandler) ListFarmers(c *fiber.Ctx) error {
	var page store.Page
	if p := utils.ParsePagination(c); p.Enabled() {
		page = store.Page{Limit: p.Limit, Offset: p.Offset}
	}
	farmers, err := h.auth.ListFarmers(c.UserContext(), page)
	if err != nil {
		return err
	}
	return respondList(c, models.Views(farmers), len(farmers))
}

type farmSizeRequest struct {
	Value *float64             `json:"value"`
	Unit  *models.FarmSizeUnit `json:"unit"`
}

type farmerDetailsRequest struct {
	FarmName       *string                `json:"farmName"`
	Specialization *models.Specialization `json:"specialization"`
	FarmSize       *farmSizeRequest       `json:"farmSize"`
}

// updateUserRequest accepts the nested farmerDetails object from JSON bodies
// and flat farm fields from forms.
type updateUserRequest struct {
	FirstName      *string               `json:"firstName" form:"firstName"`
	LastName       *string               `json:"lastName" form:"lastName"`
	Phone          *string               `json:"phone" form:"phone"`
	Address        *string               `json:"address" form:"address"`
	Bio            *string               `json:"bio" form:"bio"`
	ProfilePicture *string               `json:"profilePicture" form:"-"`
	FarmerDetails  *farmerDetailsRequest `json:"farmerDetails" form:"-"`

	FarmName       *string  `json:"-" form:"farmName"`
	Specialization *string  `json:"-" form:"specialization"`
	FarmSize       *float64 `json:"-" form:"farmSize"`
	FarmSizeUnit   *string  `json:"-" form:"farmSizeUnit"`
}

func (r updateUserRequest) patch() services.ProfilePatch {
	p := services.ProfilePatch{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Phone:          r.Phone,
		Address:        r.Address,
		Bio:            r.Bio,
		ProfilePicture: r.ProfilePicture,
	}

	switch {
	case r.FarmerDetails != nil:
		fp := &services.FarmerPatch{
			FarmName:       r.FarmerDetails.FarmName,
			Specialization: r.FarmerDetails.Specialization,
		}
		if fs := r.FarmerDetails.FarmSize; fs != nil {
			fp.FarmSize = &services.FarmSizePatch{Value: fs.Value, Unit: fs.Unit}
		}
		p.FarmerDetails = fp
	case r.FarmName != nil || r.Specialization != nil || r.FarmSize != nil || r.FarmSizeUnit != nil:
		fp := &services.FarmerPatch{FarmName: r.FarmName}
		if r.Specialization != nil {
			spec := models.Specialization(*r.Specialization)
			fp.Specialization = &spec
		}
		if r.FarmSize != nil || r.FarmSizeUnit != nil {
			fs := &services.FarmSizePatch{Value: r.FarmSize}
			if r.FarmSizeUnit != nil {
				unit := models.FarmSizeUnit(*r.FarmSizeUnit)
				fs.Unit = &unit
			}
			fp.FarmSize = fs
		}
		p.FarmerDetails = fp
	}
	return p
}

// UpdateUser changes profile fields of the caller's own account.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody()
	}

	picture, done, err := formPicture(c)
	if err != nil {
		return err
	}
	defer done()

	user, err := h.auth.UpdateProfile(c.UserContext(), c.Params("id"), req.patch(), picture)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, user.View(), "User updated successfully")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
}

// ChangePassword replaces the caller's password.
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody()
	}

	if err := h.auth.ChangePassword(c.UserContext(), c.Params("id"), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, nil, "Password changed successfully")
}

// DeleteUser removes the caller's account.
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.auth.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, nil, "User deleted successfully")
}
