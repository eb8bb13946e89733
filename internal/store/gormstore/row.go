package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/farmfresh/internal/models"
)

// userRow is the users table. Farmer details are flattened into nullable
// columns that are set only for farmers.
type userRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	UserType       string `gorm:"size:16;not null;index"`
	FirstName      string `gorm:"not null"`
	LastName       string `gorm:"not null"`
	Email          string `gorm:"uniqueIndex;not null"`
	Phone          string `gorm:"not null"`
	Address        string `gorm:"not null"`
	Bio            string `gorm:"size:250"`
	ProfilePicture string
	Password       string `gorm:"not null"`

	FarmName       *string
	Specialization *string  `gorm:"size:32"`
	FarmSizeValue  *float64 `gorm:"column:farm_size_value"`
	FarmSizeUnit   *string  `gorm:"size:16"`

	ResetPasswordToken   *string `gorm:"index"`
	ResetPasswordExpires *time.Time
}

func (userRow) TableName() string { return "users" }

// BeforeCreate ensures a UUID is generated for new records.
func (r *userRow) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func fromUser(u *models.User) (*userRow, error) {
	r := &userRow{
		UserType:       string(u.Role),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Phone:          u.Phone,
		Address:        u.Address,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		Password:       u.PasswordHash,
	}
	if u.ID != "" {
		id, err := uuid.Parse(u.ID)
		if err != nil {
			return nil, err
		}
		r.ID = id
	}
	if u.FarmerDetails != nil {
		r.setFarmer(*u.FarmerDetails)
	}
	if u.ResetTokenHash != "" {
		token := u.ResetTokenHash
		r.ResetPasswordToken = &token
		r.ResetPasswordExpires = u.ResetTokenExpiry
	}
	return r, nil
}

func (r *userRow) setFarmer(d models.FarmerDetails) {
	name := d.FarmName
	spec := string(d.Specialization)
	size := d.FarmSize.Value
	unit := string(d.FarmSize.Unit)
	r.FarmName = &name
	r.Specialization = &spec
	r.FarmSizeValue = &size
	r.FarmSizeUnit = &unit
}

func (r *userRow) toUser() *models.User {
	u := &models.User{
		BaseModel: models.BaseModel{
			ID:        r.ID.String(),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Role:           models.Role(r.UserType),
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		Address:        r.Address,
		Bio:            r.Bio,
		ProfilePicture: r.ProfilePicture,
		PasswordHash:   r.Password,
	}
	if r.FarmName != nil {
		d := models.FarmerDetails{FarmName: *r.FarmName}
		if r.Specialization != nil {
			d.Specialization = models.Specialization(*r.Specialization)
		}
		if r.FarmSizeValue != nil {
			d.FarmSize.Value = *r.FarmSizeValue
		}
		if r.FarmSizeUnit != nil {
			d.FarmSize.Unit = models.FarmSizeUnit(*r.FarmSizeUnit)
		}
		u.FarmerDetails = &d
	}
	if r.ResetPasswordToken != nil {
		u.ResetTokenHash = *r.ResetPasswordToken
		u.ResetTokenExpiry = r.ResetPasswordExpires
	}
	return u
}

// changeColumns maps a partial update onto column names.
func changeColumns(c models.UserChanges) map[string]any {
	cols := map[string]any{}
	if c.FirstName != nil {
		cols["first_name"] = *c.FirstName
	}
	if c.LastName != nil {
		cols["last_name"] = *c.LastName
	}
	if c.Phone != nil {
		cols["phone"] = *c.Phone
	}
	if c.Address != nil {
		cols["address"] = *c.Address
	}
	if c.Bio != nil {
		cols["bio"] = *c.Bio
	}
	if c.ProfilePicture != nil {
		cols["profile_picture"] = *c.ProfilePicture
	}
	if d := c.FarmerDetails; d != nil {
		cols["farm_name"] = d.FarmName
		cols["specialization"] = string(d.Specialization)
		cols["farm_size_value"] = d.FarmSize.Value
		cols["farm_size_unit"] = string(d.FarmSize.Unit)
	}
	return cols
}
