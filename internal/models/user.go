package models

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/farmfresh/internal/errutil"
)

// Role distinguishes the two account variants.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleFarmer   Role = "farmer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleFarmer
}

// Specialization is what a farm mainly produces.
type Specialization string

const (
	SpecializationVegetables Specialization = "vegetables"
	SpecializationFruits     Specialization = "fruits"
	SpecializationGrains     Specialization = "grains"
	SpecializationDairy      Specialization = "dairy"
	SpecializationMixed      Specialization = "mixed"
)

// Valid reports whether s is a known specialization.
func (s Specialization) Valid() bool {
	switch s {
	case SpecializationVegetables, SpecializationFruits, SpecializationGrains,
		SpecializationDairy, SpecializationMixed:
		return true
	}
	return false
}

// FarmSizeUnit is the unit a farm size is measured in.
type FarmSizeUnit string

const (
	UnitAcres    FarmSizeUnit = "acres"
	UnitHectares FarmSizeUnit = "hectares"
	UnitSqFt     FarmSizeUnit = "sq_ft"
	UnitSqM      FarmSizeUnit = "sq_m"
)

// Valid reports whether u is a known unit.
func (u FarmSizeUnit) Valid() bool {
	switch u {
	case UnitAcres, UnitHectares, UnitSqFt, UnitSqM:
		return true
	}
	return false
}

const (
	// MaxBioLength is the longest bio accepted, in characters.
	MaxBioLength = 250
	// MinPasswordLength applies to every password a user chooses.
	MinPasswordLength = 6
)

// FarmSize is a non-negative area with its unit.
type FarmSize struct {
	Value float64      `json:"value"`
	Unit  FarmSizeUnit `json:"unit"`
}

// FarmerDetails is the block only farmer accounts carry.
type FarmerDetails struct {
	FarmName       string         `json:"farmName"`
	Specialization Specialization `json:"specialization"`
	FarmSize       FarmSize       `json:"farmSize"`
}

// Normalize trims text fields and defaults an empty unit to acres.
func (d *FarmerDetails) Normalize() {
	d.FarmName = strings.TrimSpace(d.FarmName)
	d.Specialization = Specialization(strings.TrimSpace(string(d.Specialization)))
	d.FarmSize.Unit = FarmSizeUnit(strings.TrimSpace(string(d.FarmSize.Unit)))
	if d.FarmSize.Unit == "" {
		d.FarmSize.Unit = UnitAcres
	}
}

// Validate checks the block's internal consistency.
func (d FarmerDetails) Validate() error {
	if d.FarmName == "" || d.Specialization == "" {
		return errutil.Validation("Farm name and specialization are required for farmers")
	}
	if !d.Specialization.Valid() {
		return errutil.Validation("Specialization must be one of vegetables, fruits, grains, dairy, mixed")
	}
	if d.FarmSize.Value < 0 {
		return errutil.Validation("Farm size cannot be negative")
	}
	if !d.FarmSize.Unit.Valid() {
		return errutil.Validation("Farm size unit must be one of acres, hectares, sq_ft, sq_m")
	}
	return nil
}

// Profile holds the personal fields every account has.
type Profile struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Address        string
	Bio            string
	ProfilePicture string
}

func (p *Profile) normalize() {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = NormalizeEmail(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	p.Bio = strings.TrimSpace(p.Bio)
	p.ProfilePicture = strings.TrimSpace(p.ProfilePicture)
}

func (p Profile) validate() error {
	if p.FirstName == "" || p.LastName == "" || p.Email == "" || p.Phone == "" || p.Address == "" {
		return errutil.Validation("First name, last name, email, phone, address, and password are required")
	}
	if addr, err := mail.ParseAddress(p.Email); err != nil || addr.Address != p.Email {
		return errutil.Validation("Email address is not valid")
	}
	return ValidateBio(p.Bio)
}

// ValidateBio enforces the bio length limit.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return errutil.Validation("Bio cannot be longer than %d characters", MaxBioLength)
	}
	return nil
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordHasher is the subset of the credential hasher a User needs.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// User is the sole persisted entity. Create one with NewUser; a customer never
// carries farmer details and a farmer always does.
type User struct {
	BaseModel
	Role           Role           `json:"userType"`
	FirstName      string         `json:"firstName"`
	LastName       string         `json:"lastName"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Address        string         `json:"address"`
	Bio            string         `json:"bio"`
	ProfilePicture string         `json:"profilePicture"`
	FarmerDetails  *FarmerDetails `json:"farmerDetails,omitempty"`
	PasswordHash   string         `json:"-"`

	ResetTokenHash   string     `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
}

// NewUser validates profile and role-specific fields and returns an unsaved
// account without credentials.
func NewUser(profile Profile, role Role, details *FarmerDetails) (*User, error) {
	profile.normalize()
	if err := profile.validate(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, errutil.Validation("Valid user type (customer or farmer) is required")
	}

	switch role {
	case RoleFarmer:
		if details == nil {
			return nil, errutil.Validation("Farm name and specialization are required for farmers")
		}
		d := *details
		d.Normalize()
		if err := d.Validate(); err != nil {
			return nil, err
		}
		details = &d
	case RoleCustomer:
		if details != nil {
			return nil, errutil.Validation("Cannot add farmer details to a customer account")
		}
	}

	return &User{
		Role:           role,
		FirstName:      profile.FirstName,
		LastName:       profile.LastName,
		Email:          profile.Email,
		Phone:          profile.Phone,
		Address:        profile.Address,
		Bio:            profile.Bio,
		ProfilePicture: profile.ProfilePicture,
		FarmerDetails:  details,
	}, nil
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Farmer returns the farmer block when the account is a farmer.
func (u *User) Farmer() (FarmerDetails, bool) {
	if !u.IsFarmer() || u.FarmerDetails == nil {
		return FarmerDetails{}, false
	}
	return *u.FarmerDetails, true
}

// IsFarmer reports whether the account is a farmer.
func (u *User) IsFarmer() bool { return u.Role == RoleFarmer }

// SetPassword validates and hashes a new password.
func (u *User) SetPassword(hasher PasswordHasher, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return errutil.Internal("HashPassword", err)
	}
	u.PasswordHash = hash
	return nil
}

// CheckPassword compares a candidate against the stored hash.
func (u *User) CheckPassword(hasher PasswordHasher, password string) bool {
	if u.PasswordHash == "" || password == "" {
		return false
	}
	return hasher.Verify(password, u.PasswordHash)
}

// HasPendingReset reports whether a reset token is stored and not yet expired.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenHash != "" && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errutil.Validation("Password must be at least %d characters long", MinPasswordLength)
	}
	return nil
}

// UserChanges lists the profile fields an update may touch. Nil fields are
// left as they are.
type UserChanges struct {
	FirstName      *string
	LastName       *string
	Phone          *string
	Address        *string
	Bio            *string
	ProfilePicture *string
	FarmerDetails  *FarmerDetails
}

// Empty reports whether no field is set.
func (c UserChanges) Empty() bool {
	return c.FirstName == nil && c.LastName == nil && c.Phone == nil && c.Address == nil &&
		c.Bio == nil && c.ProfilePicture == nil && c.FarmerDetails == nil
}

// Apply copies the set fields onto u.
func (c UserChanges) Apply(u *User) {
	if c.FirstName != nil {
		u.FirstName = *c.FirstName
	}
	if c.LastName != nil {
		u.LastName = *c.LastName
	}
	if c.Phone != nil {
		u.Phone = *c.Phone
	}
	if c.Address != nil {
		u.Address = *c.Address
	}
	if c.Bio != nil {
		u.Bio = *c.Bio
	}
	if c.ProfilePicture != nil {
		u.ProfilePicture = *c.ProfilePicture
	}
	if c.FarmerDetails != nil {
		d := *c.FarmerDetails
		u.FarmerDetails = &d
	}
}

// UserView is the public projection of a User. It is the only user shape
// handlers serialise.
type UserView struct {
	ID             string         `json:"_id"`
	UserType       Role           `json:"userType"`
	FirstName      string         `json:"firstName"`
	LastName       string         `json:"lastName"`
	FullName       string         `json:"fullName"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Address        string         `json:"address"`
	Bio            string         `json:"bio"`
	ProfilePicture string         `json:"profilePicture"`
	FarmerDetails  *FarmerDetails `json:"farmerDetails,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// View returns the public projection of u.
func (u *User) View() UserView {
	v := UserView{
		ID:             u.ID,
		UserType:       u.Role,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		FullName:       u.FullName(),
		Email:          u.Email,
		Phone:          u.Phone,
		Address:        u.Address,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if d, ok := u.Farmer(); ok {
		v.FarmerDetails = &d
	}
	return v
}

// Views projects a slice of users.
func Views(users []*User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out
}
