package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/farmfresh/internal/errutil"
	"github.com/example/farmfresh/internal/metrics"
	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/store"
	"github.com/example/farmfresh/internal/utils"
)

// Client-facing messages shared with the HTTP layer.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgWrongPassword      = "Current password is incorrect"
	MsgUserNotFound       = "User not found"
	MsgUserExists         = "User with this email already exists"
	MsgResetRequested     = "If that email exists in our system, we've sent a password reset link."
	MsgResetMailFailed    = "Failed to send password reset email"
	MsgResetTokenInvalid  = "Password reset token is invalid or has expired"
	MsgFarmerOnCustomer   = "Cannot add farmer details to a customer account"
)

// AuthDeps are the collaborators of AuthService. Metrics and Logger are optional.
type AuthDeps struct {
	Users       store.UserStore
	Hasher      utils.PasswordHasher
	Tokens      *utils.TokenIssuer
	Blobs       BlobStore
	Mailer      Mailer
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	FrontendURL string
	Now         func() time.Time
}

// AuthService implements account registration, login, password recovery and
// profile management.
type AuthService struct {
	users       store.UserStore
	hasher      utils.PasswordHasher
	tokens      *utils.TokenIssuer
	blobs       BlobStore
	mailer      Mailer
	metrics     *metrics.Metrics
	logger      *slog.Logger
	frontendURL string
	now         func() time.Time

	// dummyHash is verified against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewAuthService validates deps and builds the service.
func NewAuthService(deps AuthDeps) (*AuthService, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.New("auth service: user store is required")
	case deps.Hasher == nil:
		return nil, errors.New("auth service: password hasher is required")
	case deps.Tokens == nil:
		return nil, errors.New("auth service: token issuer is required")
	case deps.Mailer == nil:
		return nil, errors.New("auth service: mailer is required")
	}

	s := &AuthService{
		users:       deps.Users,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		blobs:       deps.Blobs,
		mailer:      deps.Mailer,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		frontendURL: deps.FrontendURL,
		now:         deps.Now,
	}
	if s.blobs == nil {
		s.blobs = DisabledBlobStore{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	dummy, err := s.hasher.Hash("farmfresh-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("auth service: prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	UserType       models.Role
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Address        string
	Bio            string
	Password       string
	ProfilePicture string

	FarmName       string
	Specialization models.Specialization
	FarmSize       float64
	FarmSizeUnit   models.FarmSizeUnit
}

func (in RegisterInput) farmerDetails() *models.FarmerDetails {
	if in.UserType != models.RoleFarmer {
		return nil
	}
	return &models.FarmerDetails{
		FarmName:       in.FarmName,
		Specialization: in.Specialization,
		FarmSize:       models.FarmSize{Value: in.FarmSize, Unit: in.FarmSizeUnit},
	}
}

// AuthResult is a user together with a freshly issued session token.
type AuthResult struct {
	User  *models.User
	Token string
}

// Register creates an account. A picture, when given, replaces any
// ProfilePicture URL in the input.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, picture *Picture) (*AuthResult, error) {
	res, err := s.register(ctx, in, picture)
	s.record("register", err)
	return res, err
}

func (s *AuthService) register(ctx context.Context, in RegisterInput, picture *Picture) (*AuthResult, error) {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" ||
		strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Phone) == "" ||
		strings.TrimSpace(in.Address) == "" || in.Password == "" {
		return nil, errutil.Validation("First name, last name, email, phone, address, and password are required")
	}

	user, err := models.NewUser(models.Profile{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		Address:        in.Address,
		Bio:            in.Bio,
		ProfilePicture: strings.TrimSpace(in.ProfilePicture),
	}, in.UserType, in.farmerDetails())
	if err != nil {
		return nil, err
	}
	if err := user.SetPassword(s.hasher, in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, user.Email); err == nil {
		return nil, errutil.Conflict(MsgUserExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, errutil.Internal("GetByEmail", err)
	}

	var uploaded string
	if picture != nil {
		if err := picture.Validate(); err != nil {
			return nil, err
		}
		if uploaded, err = s.upload(ctx, *picture); err != nil {
			return nil, err
		}
		user.ProfilePicture = uploaded
	}

	if err := s.users.Create(ctx, user); err != nil {
		if uploaded != "" {
			s.releasePicture(ctx, uploaded)
		}
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errutil.Conflict(MsgUserExists)
		}
		return nil, errutil.Internal("CreateUser", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "user_type", user.Role)
	return &AuthResult{User: user, Token: token}, nil
}

// Login checks credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := s.login(ctx, email, password)
	s.record("login", err)
	return res, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errutil.Validation("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, errutil.Internal("GetByEmail", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		return nil, errutil.Unauthorized(MsgInvalidCredentials)
	}
	if !user.CheckPassword(s.hasher, password) {
		return nil, errutil.Unauthorized(MsgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	err := s.changePassword(ctx, userID, current, next)
	s.record("change_password", err)
	return err
}

func (s *AuthService) changePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return errutil.Validation("Current password and new password are required")
	}
	if err := models.ValidatePassword(next); err != nil {
		return errutil.Validation("New password must be at least %d characters long", models.MinPasswordLength)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(s.hasher, current) {
		return errutil.Unauthorized(MsgWrongPassword)
	}
	if err := user.SetPassword(s.hasher, next); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.PasswordHash); err != nil {
		return s.storeError("UpdatePassword", err)
	}
	return nil
}

// ForgotPassword mails a reset link when the email belongs to an account.
// The returned message is the same either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	err := s.forgotPassword(ctx, email)
	s.record("forgot_password", err)
	if err != nil {
		return "", err
	}
	return MsgResetRequested, nil
}

func (s *AuthService) forgotPassword(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return errutil.Validation("Email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.DebugContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return errutil.Internal("GetByEmail", err)
	}

	token, hash, err := utils.GenerateResetToken()
	if err != nil {
		return errutil.Internal("GenerateResetToken", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, hash, s.now().Add(utils.ResetTokenTTL)); err != nil {
		return errutil.Internal("SetResetToken", err)
	}

	msg, err := PasswordResetMessage(user.Email, user.FirstName, ResetLink(s.frontendURL, token))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.ErrorContext(ctx, "failed to clear reset token after mail failure",
				"user_id", user.ID, "error", clearErr)
		}
		return errutil.InternalWithMessage("SendResetEmail", MsgResetMailFailed, err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, next string) error {
	err := s.resetPassword(ctx, token, next)
	s.record("reset_password", err)
	return err
}

func (s *AuthService) resetPassword(ctx context.Context, token, next string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errutil.Validation("Reset token is required")
	}
	if err := models.ValidatePassword(next); err != nil {
		return err
	}

	hash := utils.HashResetToken(token)
	now := s.now()
	user, err := s.users.GetByResetToken(ctx, hash, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.clearExpiredReset(ctx, hash)
			return errutil.InvalidOrExpiredToken(MsgResetTokenInvalid)
		}
		return errutil.Internal("GetByResetToken", err)
	}

	if err := user.SetPassword(s.hasher, next); err != nil {
		return err
	}
	// The token may have been spent while hashing; the store re-checks it.
	if err := s.users.ConsumeResetToken(ctx, user.ID, hash, user.PasswordHash, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errutil.InvalidOrExpiredToken(MsgResetTokenInvalid)
		}
		return errutil.Internal("ConsumeResetToken", err)
	}
	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}

// clearExpiredReset drops a token that matched a user but had expired. A zero
// time matches any stored expiry.
func (s *AuthService) clearExpiredReset(ctx context.Context, hash string) {
	user, err := s.users.GetByResetToken(ctx, hash, time.Time{})
	if err != nil {
		return
	}
	if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
		s.logger.WarnContext(ctx, "clear expired reset token", "user_id", user.ID, "error", err)
	}
}

// FarmSizePatch is a partial farm size.
type FarmSizePatch struct {
	Value *float64
	Unit  *models.FarmSizeUnit
}

// FarmerPatch is a partial farmer block merged over the stored one.
type FarmerPatch struct {
	FarmName       *string
	Specialization *models.Specialization
	FarmSize       *FarmSizePatch
}

func (p FarmerPatch) mergeInto(d models.FarmerDetails) models.FarmerDetails {
	if p.FarmName != nil {
		d.FarmName = *p.FarmName
	}
	if p.Specialization != nil {
		d.Specialization = *p.Specialization
	}
	if p.FarmSize != nil {
		if p.FarmSize.Value != nil {
			d.FarmSize.Value = *p.FarmSize.Value
		}
		if p.FarmSize.Unit != nil {
			d.FarmSize.Unit = *p.FarmSize.Unit
		}
	}
	return d
}

// ProfilePatch lists the fields a profile update may change. Credentials,
// email, id and role are not part of it.
type ProfilePatch struct {
	FirstName      *string
	LastName       *string
	Phone          *string
	Address        *string
	Bio            *string
	ProfilePicture *string
	FarmerDetails  *FarmerPatch
}

func (p ProfilePatch) changes(user *models.User) (models.UserChanges, error) {
	var c models.UserChanges

	required := []struct {
		name string
		in   *string
		out  **string
	}{
		{"First name", p.FirstName, &c.FirstName},
		{"Last name", p.LastName, &c.LastName},
		{"Phone", p.Phone, &c.Phone},
		{"Address", p.Address, &c.Address},
	}
	for _, f := range required {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return c, errutil.Validation("%s cannot be empty", f.name)
		}
		*f.out = &v
	}

	if p.Bio != nil {
		bio := strings.TrimSpace(*p.Bio)
		if err := models.ValidateBio(bio); err != nil {
			return c, err
		}
		c.Bio = &bio
	}
	if p.ProfilePicture != nil {
		pic := strings.TrimSpace(*p.ProfilePicture)
		c.ProfilePicture = &pic
	}

	if p.FarmerDetails != nil {
		current, ok := user.Farmer()
		if !ok {
			return c, errutil.Validation(MsgFarmerOnCustomer)
		}
		merged := p.FarmerDetails.mergeInto(current)
		merged.Normalize()
		if err := merged.Validate(); err != nil {
			return c, err
		}
		c.FarmerDetails = &merged
	}
	return c, nil
}

// UpdateProfile applies patch to the user. A picture, when given, replaces
// the stored one and the old blob is released.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch, picture *Picture) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	changes, err := patch.changes(user)
	if err != nil {
		return nil, err
	}

	var uploaded string
	if picture != nil {
		if err := picture.Validate(); err != nil {
			return nil, err
		}
		if uploaded, err = s.upload(ctx, *picture); err != nil {
			return nil, err
		}
		changes.ProfilePicture = &uploaded
	}

	if changes.Empty() {
		return user, nil
	}

	updated, err := s.users.Update(ctx, user.ID, changes)
	if err != nil {
		if uploaded != "" {
			s.releasePicture(ctx, uploaded)
		}
		return nil, s.storeError("UpdateUser", err)
	}

	if changes.ProfilePicture != nil && user.ProfilePicture != "" && user.ProfilePicture != *changes.ProfilePicture {
		s.releasePicture(ctx, user.ProfilePicture)
	}
	return updated, nil
}

// DeleteUser removes the account and releases its picture.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return s.storeError("DeleteUser", err)
	}
	if user.ProfilePicture != "" {
		s.releasePicture(ctx, user.ProfilePicture)
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", user.ID)
	return nil
}

// GetByID returns a user by id.
func (s *AuthService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, id)
}

// GetByEmail returns a user by email, compared lowercased.
func (s *AuthService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, s.storeError("GetByEmail", err)
	}
	return user, nil
}

// ListFarmers returns farmers newest first. The zero page returns all.
func (s *AuthService) ListFarmers(ctx context.Context, page store.Page) ([]*models.User, error) {
	users, err := s.users.ListByRole(ctx, models.RoleFarmer, page)
	if err != nil {
		return nil, errutil.Internal("ListFarmers", err)
	}
	return users, nil
}

func (s *AuthService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError("GetUserByID", err)
	}
	return user, nil
}

func (s *AuthService) storeError(operation string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return errutil.NotFound(MsgUserNotFound)
	}
	return errutil.Internal(operation, err)
}

func (s *AuthService) upload(ctx context.Context, p Picture) (string, error) {
	url, err := s.blobs.Upload(ctx, p)
	if err != nil {
		if errutil.HasCode(err, errutil.CodeValidation) {
			return "", err
		}
		return "", errutil.Internal("UploadPicture", err)
	}
	return url, nil
}

// releasePicture deletes a blob. Failures are logged only.
func (s *AuthService) releasePicture(ctx context.Context, url string) {
	if err := s.blobs.Delete(ctx, url); err != nil {
		s.logger.WarnContext(ctx, "failed to release profile picture", "url", url, "error", err)
	}
}

func (s *AuthService) record(event string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.RecordAuth(event, outcome)
}
