package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/farmfresh/internal/middleware"
	"github.com/example/farmfresh/internal/routes"
	"github.com/example/farmfresh/internal/services"
	"github.com/example/farmfresh/internal/store/memstore"
	"github.com/example/farmfresh/internal/utils"
)

type inbox struct {
	mu   sync.Mutex
	last services.Message
}

func (i *inbox) Send(_ context.Context, msg services.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.last = msg
	return nil
}

var linkToken = regexp.MustCompile(`token=([0-9a-f]{64})`)

func (i *inbox) token(t *testing.T) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	m := linkToken.FindStringSubmatch(i.last.HTML)
	require.Len(t, m, 2)
	return m[1]
}

func newTestClient(t *testing.T) (*Client, *inbox) {
	t.Helper()
	users := memstore.New()
	tokens, err := utils.NewTokenIssuer("client-secret", nil)
	require.NoError(t, err)
	mail := &inbox{}
	auth, err := services.NewAuthService(services.AuthDeps{
		Users:       users,
		Hasher:      utils.NewBcryptHasher(bcrypt.MinCost),
		Tokens:      tokens,
		Mailer:      mail,
		FrontendURL: "http://localhost:3000",
	})
	require.NoError(t, err)

	app := routes.NewApp(routes.Deps{
		Auth:     auth,
		Sessions: middleware.NewAuth(tokens, users),
		Store:    users,
	})
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return New(srv.URL), mail
}

func farmer(email string) RegisterRequest {
	return RegisterRequest{
		UserType:       "farmer",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          email,
		Phone:          "555-0100",
		Address:        "1 Main St",
		Password:       "secret123",
		FarmName:       "Green Acres",
		Specialization: "fruits",
		FarmSize:       3,
	}
}

func TestSessionLifecycle(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	s, err := c.Register(ctx, farmer("ada@example.com"))
	require.NoError(t, err)
	require.True(t, s.Active())
	assert.NotEmpty(t, s.Token())
	assert.Equal(t, "Ada Lovelace", s.User().FullName)
	require.NotNil(t, s.User().FarmerDetails)
	assert.Equal(t, FarmSize{Value: 3, Unit: "acres"}, s.User().FarmerDetails.FarmSize)

	u, err := s.UpdateProfile(ctx, ProfileUpdate{
		Bio:           Ptr("Apples and pears"),
		FarmerDetails: &FarmerUpdate{FarmName: Ptr("Orchard Hill")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Apples and pears", u.Bio)
	assert.Equal(t, "Orchard Hill", s.User().FarmerDetails.FarmName)

	require.NoError(t, s.ChangePassword(ctx, "secret123", "another1"))
	refreshed, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.User().ID, refreshed.ID)

	s.Logout()
	assert.False(t, s.Active())
	assert.Empty(t, s.User().ID)
	_, err = s.Refresh(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	s, err = c.Login(ctx, "ada@example.com", "another1")
	require.NoError(t, err)
	require.NoError(t, s.DeleteAccount(ctx))
	assert.False(t, s.Active())

	_, err = c.Login(ctx, "ada@example.com", "another1")
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestLoginFailure(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Login(context.Background(), "nobody@example.com", "whatever")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
}

func TestSessionErrors(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ada, err := c.Register(ctx, farmer("ada@example.com"))
	require.NoError(t, err)
	grace, err := c.Register(ctx, farmer("grace@example.com"))
	require.NoError(t, err)

	// Forbidden keeps the session.
	hijack := &Session{client: c, token: ada.Token(), user: grace.User()}
	err = hijack.ChangePassword(ctx, "secret123", "another1")
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.True(t, hijack.Active())

	// A token whose user is gone is rejected and ends the session.
	stale := &Session{client: c, token: grace.Token(), user: grace.User()}
	require.NoError(t, grace.DeleteAccount(ctx))
	_, err = stale.Refresh(ctx)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.False(t, stale.Active())
}

func TestPasswordRecovery(t *testing.T) {
	c, mail := newTestClient(t)
	ctx := context.Background()

	_, err := c.Register(ctx, farmer("ada@example.com"))
	require.NoError(t, err)

	msg, err := c.ForgotPassword(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, services.MsgResetRequested, msg)

	token := mail.token(t)
	require.NoError(t, c.ResetPassword(ctx, token, "brandnew1"))
	err = c.ResetPassword(ctx, token, "brandnew2")
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	_, err = c.Login(ctx, "ada@example.com", "brandnew1")
	assert.NoError(t, err)
}

func TestPublicLookups(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := c.Register(ctx, farmer(email))
		require.NoError(t, err)
	}

	all, err := c.ListFarmers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := c.ListFarmers(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	u, err := c.GetUserByEmail(ctx, "B@example.com")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", u.Email)

	_, err = c.GetUserByEmail(ctx, "zzz@example.com")
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}
