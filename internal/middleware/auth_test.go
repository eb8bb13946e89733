package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/farmfresh/internal/errutil"
	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/store/memstore"
	"github.com/example/farmfresh/internal/store/storetest"
	"github.com/example/farmfresh/internal/utils"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

type env struct {
	auth     *Auth
	users    *memstore.Store
	tokens   *utils.TokenIssuer
	clock    *testClock
	farmer   *models.User
	customer *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{users: memstore.New(), clock: &testClock{t: time.Now()}}

	var err error
	e.tokens, err = utils.NewTokenIssuer("mw-secret", e.clock.now)
	require.NoError(t, err)
	e.auth = NewAuth(e.tokens, e.users)

	e.farmer = storetest.Farmer("farmer@example.com")
	require.NoError(t, e.users.Create(context.Background(), e.farmer))
	e.customer = storetest.Customer("customer@example.com")
	require.NoError(t, e.users.Create(context.Background(), e.customer))
	return e
}

func (e *env) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := e.tokens.Issue(u)
	require.NoError(t, err)
	return tok
}

type failingLookup struct{}

func (failingLookup) GetByID(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestResolveIdentity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	valid := e.token(t, e.farmer)

	ghost := storetest.Customer("ghost@example.com")
	ghost.ID = "deleted-user"
	ghostToken := e.token(t, ghost)

	tests := []struct {
		name    string
		header  string
		state   State
		message string
	}{
		{"no header", "", NoToken, MsgNoToken},
		{"bare bearer", "Bearer ", NoToken, MsgNoToken},
		{"valid", "Bearer " + valid, Valid, ""},
		{"valid without prefix", valid, Valid, ""},
		{"garbage", "Bearer not.a.jwt", Invalid, MsgTokenInvalid},
		{"user gone", "Bearer " + ghostToken, Invalid, MsgUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.auth.ResolveIdentity(ctx, tt.header)
			assert.Equal(t, tt.state, res.State)
			if tt.state == Valid {
				require.NotNil(t, res.Identity)
				assert.Equal(t, e.farmer.ID, res.Identity.UserID())
				assert.NoError(t, res.Err)
				return
			}
			assert.Nil(t, res.Identity)
			assert.Equal(t, tt.message, errutil.PublicMessage(res.Err))
			assert.Equal(t, 401, errutil.HTTPStatus(res.Err))
		})
	}
}

func TestResolveIdentityExpired(t *testing.T) {
	e := newEnv(t)
	tok := e.token(t, e.customer)

	e.clock.t = e.clock.t.Add(time.Hour)
	res := e.auth.ResolveIdentity(context.Background(), "Bearer "+tok)
	assert.Equal(t, Expired, res.State)
	errutil.AssertErrorCode(t, res.Err, errutil.CodeTokenExpired)
	assert.Equal(t, MsgTokenExpired, errutil.PublicMessage(res.Err))
}

func TestResolveIdentityLookupFailure(t *testing.T) {
	e := newEnv(t)
	a := NewAuth(e.tokens, failingLookup{})

	res := a.ResolveIdentity(context.Background(), "Bearer "+e.token(t, e.customer))
	assert.Equal(t, Invalid, res.State)
	errutil.AssertErrorCode(t, res.Err, errutil.CodeInternal)
}

func newApp(e *env, handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(errutil.HTTPStatus(err)).SendString(errutil.PublicMessage(err))
		},
	})
	final := func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return c.SendString("anonymous")
		}
		fromCtx, ok := IdentityFrom(c.UserContext())
		if !ok || fromCtx != id {
			return c.Status(500).SendString("context mismatch")
		}
		return c.SendString(id.UserID())
	}
	app.Get("/users/:id", append(handlers, final)...)
	return app
}

func do(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthenticate(t *testing.T) {
	e := newEnv(t)
	app := newApp(e, e.auth.Authenticate())

	status, body := do(t, app, "/users/x", "")
	assert.Equal(t, 401, status)
	assert.Equal(t, MsgNoToken, body)

	status, body = do(t, app, "/users/x", "tampered")
	assert.Equal(t, 401, status)
	assert.Equal(t, MsgTokenInvalid, body)

	status, body = do(t, app, "/users/x", e.token(t, e.customer))
	assert.Equal(t, 200, status)
	assert.Equal(t, e.customer.ID, body)
}

func TestOptionalAuth(t *testing.T) {
	e := newEnv(t)
	app := newApp(e, e.auth.OptionalAuth())

	status, body := do(t, app, "/users/x", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, "anonymous", body)

	status, body = do(t, app, "/users/x", "tampered")
	assert.Equal(t, 200, status)
	assert.Equal(t, "anonymous", body)

	_, body = do(t, app, "/users/x", e.token(t, e.farmer))
	assert.Equal(t, e.farmer.ID, body)
}

func TestRoleChecks(t *testing.T) {
	e := newEnv(t)
	farmersOnly := newApp(e, e.auth.Authenticate(), RequireFarmer())
	customersOnly := newApp(e, e.auth.Authenticate(), RequireCustomer())

	status, _ := do(t, farmersOnly, "/users/x", e.token(t, e.farmer))
	assert.Equal(t, 200, status)
	status, body := do(t, farmersOnly, "/users/x", e.token(t, e.customer))
	assert.Equal(t, 403, status)
	assert.Equal(t, MsgFarmersOnly, body)

	status, _ = do(t, customersOnly, "/users/x", e.token(t, e.customer))
	assert.Equal(t, 200, status)
	status, body = do(t, customersOnly, "/users/x", e.token(t, e.farmer))
	assert.Equal(t, 403, status)
	assert.Equal(t, MsgCustomersOnly, body)
}

func TestRequireOwner(t *testing.T) {
	e := newEnv(t)
	app := newApp(e, e.auth.Authenticate(), RequireOwner("id"))

	status, _ := do(t, app, "/users/"+e.customer.ID, e.token(t, e.customer))
	assert.Equal(t, 200, status)

	status, body := do(t, app, "/users/"+e.farmer.ID, e.token(t, e.customer))
	assert.Equal(t, 403, status)
	assert.Equal(t, MsgOwnerOnly, body)

	unauthenticated := newApp(e, RequireOwner("id"))
	status, _ = do(t, unauthenticated, "/users/"+e.customer.ID, "")
	assert.Equal(t, 401, status)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "no_token", NoToken.String())
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "expired", Expired.String())
	assert.Equal(t, "invalid", Invalid.String())
}
