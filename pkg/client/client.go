// Package client is a Go API client for the FarmFresh account backend.
//
// Login and Register return a Session that carries the issued token and the
// cached user. Sessions are explicit values; nothing is stored globally.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("farmfresh: %d %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ErrNoSession is returned by Session calls after Logout or DeleteAccount.
var ErrNoSession = errors.New("farmfresh: no active session")

// FarmSize mirrors the server's farm size object.
type FarmSize struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// FarmerDetails mirrors the server's farmer block.
type FarmerDetails struct {
	FarmName       string   `json:"farmName"`
	Specialization string   `json:"specialization"`
	FarmSize       FarmSize `json:"farmSize"`
}

// User is the public view of an account.
type User struct {
	ID             string         `json:"_id"`
	UserType       string         `json:"userType"`
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

// RegisterRequest is the registration body.
type RegisterRequest struct {
	UserType       string  `json:"userType"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Address        string  `json:"address"`
	Bio            string  `json:"bio,omitempty"`
	Password       string  `json:"password"`
	ProfilePicture string  `json:"profilePicture,omitempty"`
	FarmName       string  `json:"farmName,omitempty"`
	Specialization string  `json:"specialization,omitempty"`
	FarmSize       float64 `json:"farmSize,omitempty"`
	FarmSizeUnit   string  `json:"farmSizeUnit,omitempty"`
}

// Client talks to one FarmFresh server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the server at baseURL, e.g. "http://localhost:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Status  bool            `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Count   int             `json:"count"`
}

type authData struct {
	User
	Token string `json:"token"`
}

// Register creates an account and starts a session for it.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var data authData
	if _, err := c.do(ctx, http.MethodPost, "/api/register", "", req, &data); err != nil {
		return nil, err
	}
	return newSession(c, data), nil
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var data authData
	if _, err := c.do(ctx, http.MethodPost, "/api/login", "", body, &data); err != nil {
		return nil, err
	}
	return newSession(c, data), nil
}

// ForgotPassword requests a reset link and returns the server's message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.do(ctx, http.MethodPost, "/api/forgot-password", "", map[string]string{"email": email}, nil)
}

// ResetPassword consumes a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "newPassword": newPassword}
	_, err := c.do(ctx, http.MethodPost, "/api/reset-password", "", body, nil)
	return err
}

// GetUserByEmail looks up a public profile.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if _, err := c.do(ctx, http.MethodGet, "/api/user/email/"+url.PathEscape(email), "", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListFarmers returns farmers newest first. A zero limit returns all.
func (c *Client) ListFarmers(ctx context.Context, page, limit int) ([]User, error) {
	path := "/api/farmers"
	if limit > 0 {
		q := url.Values{}
		q.Set("limit", fmt.Sprint(limit))
		if page > 0 {
			q.Set("page", fmt.Sprint(page))
		}
		path += "?" + q.Encode()
	}
	var users []User
	if _, err := c.do(ctx, http.MethodGet, path, "", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// do sends body as JSON and decodes the envelope's data into out. It
// returns the envelope message.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) (string, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s %s: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return "", fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 || !env.Status {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return env.Message, nil
}
