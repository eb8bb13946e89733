package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"

	"github.com/example/farmfresh/internal/errutil"
	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/store"
	"github.com/example/farmfresh/internal/utils"
)

// Messages returned by the access checks.
const (
	MsgNoToken       = "Access denied. No token provided."
	MsgTokenExpired  = "Token expired. Please login again."
	MsgTokenInvalid  = "Invalid token."
	MsgUserNotFound  = "Invalid token. User not found."
	MsgFarmersOnly   = "Access denied. Only farmers can access this resource."
	MsgCustomersOnly = "Access denied. Only customers can access this resource."
	MsgOwnerOnly     = "Access denied. You can only access your own resources."
)

const identityLocalsKey = "identity"

type identityKey struct{}

// State is the outcome of resolving a request's credentials.
type State int

const (
	NoToken State = iota
	Valid
	Expired
	Invalid
)

func (s State) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	default:
		return "invalid"
	}
}

// Identity is the authenticated caller.
type Identity struct {
	User  *models.User
	Token string
}

// UserID returns the caller's id.
func (i *Identity) UserID() string { return i.User.ID }

// Role returns the caller's account type.
func (i *Identity) Role() models.Role { return i.User.Role }

// Resolution is what ResolveIdentity found. Err is set for every state but Valid.
type Resolution struct {
	State    State
	Identity *Identity
	Err      error
}

// UserLookup loads the account a token names.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Auth verifies session tokens and attaches the caller to requests.
type Auth struct {
	tokens *utils.TokenIssuer
	users  UserLookup
}

// NewAuth builds the access middleware.
func NewAuth(tokens *utils.TokenIssuer, users UserLookup) *Auth {
	return &Auth{tokens: tokens, users: users}
}

// bearerToken strips an optional "Bearer " prefix.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		header = header[7:]
	}
	return strings.TrimSpace(header)
}

// ResolveIdentity verifies the Authorization header and loads the user.
func (a *Auth) ResolveIdentity(ctx context.Context, header string) Resolution {
	token := bearerToken(header)
	if token == "" {
		return Resolution{State: NoToken, Err: errutil.Unauthorized(MsgNoToken)}
	}

	claims, err := a.tokens.Verify(token)
	if err != nil {
		if errutil.HasCode(err, errutil.CodeTokenExpired) {
			return Resolution{State: Expired, Err: oops.Code(errutil.CodeTokenExpired).Errorf(MsgTokenExpired)}
		}
		return Resolution{State: Invalid, Err: oops.Code(errutil.CodeTokenInvalid).Errorf(MsgTokenInvalid)}
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Resolution{State: Invalid, Err: oops.Code(errutil.CodeTokenInvalid).Errorf(MsgUserNotFound)}
		}
		return Resolution{State: Invalid, Err: errutil.Internal("LoadTokenUser", err)}
	}

	return Resolution{State: Valid, Identity: &Identity{User: user, Token: token}}
}

// Authenticate rejects requests without a valid session.
func (a *Auth) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := a.ResolveIdentity(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if res.State != Valid {
			return res.Err
		}
		attach(c, res.Identity)
		return c.Next()
	}
}

// OptionalAuth attaches the caller when the session is valid and otherwise
// proceeds anonymously.
func (a *Auth) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := a.ResolveIdentity(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if res.State == Valid {
			attach(c, res.Identity)
		}
		return c.Next()
	}
}

func attach(c *fiber.Ctx, id *Identity) {
	c.Locals(identityLocalsKey, id)
	c.SetUserContext(WithIdentity(c.UserContext(), id))
}

// WithIdentity returns a child context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// CurrentIdentity returns the identity attached to the request.
func CurrentIdentity(c *fiber.Ctx) (*Identity, bool) {
	id, ok := c.Locals(identityLocalsKey).(*Identity)
	return id, ok && id != nil
}

// RequireFarmer allows only farmer accounts. It must run after Authenticate.
func RequireFarmer() fiber.Handler {
	return requireRole(models.RoleFarmer, MsgFarmersOnly)
}

// RequireCustomer allows only customer accounts. It must run after Authenticate.
func RequireCustomer() fiber.Handler {
	return requireRole(models.RoleCustomer, MsgCustomersOnly)
}

func requireRole(role models.Role, msg string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return errutil.Unauthorized(MsgNoToken)
		}
		if id.Role() != role {
			return errutil.Forbidden(msg)
		}
		return c.Next()
	}
}

// RequireOwner allows the request only when the path parameter equals the
// caller's id.
func RequireOwner(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return errutil.Unauthorized(MsgNoToken)
		}
		if c.Params(param) != id.UserID() {
			return errutil.Forbidden(MsgOwnerOnly)
		}
		return c.Next()
	}
}
