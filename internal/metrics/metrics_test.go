package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAuth(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAuth("login", OutcomeFailure)
	m.RecordAuth("login", OutcomeFailure)
	m.RecordAuth("login", OutcomeSuccess)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", OutcomeSuccess)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordAuth("login", OutcomeSuccess)

	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	m := New(prometheus.NewRegistry())

	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/user/:id", func(c *fiber.Ctx) error { return c.SendStatus(204) })

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/user/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, 204, resp.StatusCode)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/user/:id", "204")))
}

func TestMiddlewareUsesErrorStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())

	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/gone", func(c *fiber.Ctx) error { return fiber.NewError(410, "gone") })

	resp, err := app.Test(httptest.NewRequest("GET", "/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, 410, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/gone", "410")))
}

func TestMiddlewareLabelsSurviveBufferReuse(t *testing.T) {
	m := New(prometheus.NewRegistry())

	app := fiber.New()
	app.Use(m.Middleware())
	app.Post("/items", func(c *fiber.Ctx) error { return c.SendStatus(201) })
	app.Get("/items", func(c *fiber.Ctx) error { return c.SendStatus(200) })
	app.Delete("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(204) })

	for _, req := range []struct{ method, target string }{
		{"POST", "/items"},
		{"GET", "/items"},
		{"DELETE", "/items/1"},
		{"GET", "/items"},
	} {
		resp, err := app.Test(httptest.NewRequest(req.method, req.target, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	assert.Equal(t, 3, testutil.CollectAndCount(m.HTTPRequestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/items", "201")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("DELETE", "/items/:id", "204")))
}
