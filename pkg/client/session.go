package client

import (
	"context"
	"net/http"
	"sync"
)

// Session is a logged-in user: the session token plus the cached profile.
// It is safe for concurrent use.
type Session struct {
	client *Client

	mu    sync.RWMutex
	token string
	user  User
}

func newSession(c *Client, data authData) *Session {
	return &Session{client: c, token: data.Token, user: data.User}
}

// Active reports whether the session still holds a token.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the session token, empty after Logout.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the cached profile.
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Logout forgets the token and the cached profile. Session tokens are
// stateless so the server is not contacted.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = User{}
}

func (s *Session) credentials() (token, id string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", "", ErrNoSession
	}
	return s.token, s.user.ID, nil
}

// call runs an authenticated request. A 401 ends the session.
func (s *Session) call(ctx context.Context, method, path string, body, out any) error {
	token, _, err := s.credentials()
	if err != nil {
		return err
	}
	_, err = s.client.do(ctx, method, path, token, body, out)
	if StatusCode(err) == http.StatusUnauthorized {
		s.Logout()
	}
	return err
}

func (s *Session) setUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		s.user = u
	}
}

// Refresh reloads the cached profile from the server.
func (s *Session) Refresh(ctx context.Context) (User, error) {
	_, id, err := s.credentials()
	if err != nil {
		return User{}, err
	}
	var u User
	if err := s.call(ctx, http.MethodGet, "/api/user/"+id, nil, &u); err != nil {
		return User{}, err
	}
	s.setUser(u)
	return u, nil
}

// FarmSizeUpdate is a partial farm size.
type FarmSizeUpdate struct {
	Value *float64 `json:"value,omitempty"`
	Unit  *string  `json:"unit,omitempty"`
}

// FarmerUpdate is a partial farmer block.
type FarmerUpdate struct {
	FarmName       *string         `json:"farmName,omitempty"`
	Specialization *string         `json:"specialization,omitempty"`
	FarmSize       *FarmSizeUpdate `json:"farmSize,omitempty"`
}

// ProfileUpdate lists the profile fields to change. Nil fields are kept.
type ProfileUpdate struct {
	FirstName      *string       `json:"firstName,omitempty"`
	LastName       *string       `json:"lastName,omitempty"`
	Phone          *string       `json:"phone,omitempty"`
	Address        *string       `json:"address,omitempty"`
	Bio            *string       `json:"bio,omitempty"`
	ProfilePicture *string       `json:"profilePicture,omitempty"`
	FarmerDetails  *FarmerUpdate `json:"farmerDetails,omitempty"`
}

// UpdateProfile changes the session user's profile and caches the result.
func (s *Session) UpdateProfile(ctx context.Context, upd ProfileUpdate) (User, error) {
	_, id, err := s.credentials()
	if err != nil {
		return User{}, err
	}
	var u User
	if err := s.call(ctx, http.MethodPut, "/api/user/"+id, upd, &u); err != nil {
		return User{}, err
	}
	s.setUser(u)
	return u, nil
}

// ChangePassword replaces the session user's password. The session token
// stays valid.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	_, id, err := s.credentials()
	if err != nil {
		return err
	}
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return s.call(ctx, http.MethodPut, "/api/user/"+id+"/password", body, nil)
}

// DeleteAccount removes the session user and ends the session.
func (s *Session) DeleteAccount(ctx context.Context) error {
	_, id, err := s.credentials()
	if err != nil {
		return err
	}
	if err := s.call(ctx, http.MethodDelete, "/api/user/"+id, nil, nil); err != nil {
		return err
	}
	s.Logout()
	return nil
}

// Ptr returns a pointer to v, for building updates.
func Ptr[T any](v T) *T { return &v }
