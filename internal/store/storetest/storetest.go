// Package storetest runs the same behavioural checks against every
// store.UserStore driver.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/store"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.UserStore

// Run exercises the full UserStore contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("ListByRole", func(t *testing.T) { testListByRole(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("ResetToken", func(t *testing.T) { testResetToken(t, newStore(t)) })
	t.Run("UpdatePasswordClearsReset", func(t *testing.T) { testUpdatePasswordClearsReset(t, newStore(t)) })
	t.Run("ConsumeResetToken", func(t *testing.T) { testConsumeResetToken(t, newStore(t)) })
	t.Run("ConsumeResetTokenOnce", func(t *testing.T) { testConsumeResetTokenOnce(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
}

// Customer builds a valid unsaved customer.
func Customer(email string) *models.User {
	return &models.User{
		Role:         models.RoleCustomer,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		Phone:        "555-0100",
		Address:      "1 Main St",
		PasswordHash: "hash:" + email,
	}
}

// Farmer builds a valid unsaved farmer.
func Farmer(email string) *models.User {
	u := Customer(email)
	u.Role = models.RoleFarmer
	u.FarmerDetails = &models.FarmerDetails{
		FarmName:       "Green Acres",
		Specialization: models.SpecializationVegetables,
		FarmSize:       models.FarmSize{Value: 12.5, Unit: models.UnitHectares},
	}
	return u
}

func testCreateAndGet(t *testing.T, s store.UserStore) {
	ctx := context.Background()

	u := Farmer("farmer@example.com")
	require.NoError(t, s.Create(ctx, u))
	require.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, models.RoleFarmer, got.Role)
	assert.Equal(t, "hash:farmer@example.com", got.PasswordHash)
	require.NotNil(t, got.FarmerDetails)
	assert.Equal(t, "Green Acres", got.FarmerDetails.FarmName)
	assert.Equal(t, models.UnitHectares, got.FarmerDetails.FarmSize.Unit)
	assert.InDelta(t, 12.5, got.FarmerDetails.FarmSize.Value, 0.0001)

	byEmail, err := s.GetByEmail(ctx, "farmer@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	c := Customer("customer@example.com")
	require.NoError(t, s.Create(ctx, c))
	gotC, err := s.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, gotC.FarmerDetails)
}

func testDuplicateEmail(t *testing.T, s store.UserStore) {
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, Customer("dup@example.com")))
	err := s.Create(ctx, Farmer("dup@example.com"))
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func testNotFound(t *testing.T, s store.UserStore) {
	ctx := context.Background()

	_, err := s.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetByResetToken(ctx, "missing", time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)

	name := "x"
	_, err = s.Update(ctx, "00000000-0000-0000-0000-000000000000", models.UserChanges{FirstName: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "00000000-0000-0000-0000-000000000000"), store.ErrNotFound)
}

func testListByRole(t *testing.T, s store.UserStore) {
	ctx := context.Background()

	first := Farmer("f1@example.com")
	require.NoError(t, s.Create(ctx, first))
	time.Sleep(5 * time.Millisecond)
	second := Farmer("f2@example.com")
	require.NoError(t, s.Create(ctx, second))
	require.NoError(t, s.Create(ctx, Customer("c1@example.com")))

	farmers, err := s.ListByRole(ctx, models.RoleFarmer, store.Page{})
	require.NoError(t, err)
	require.Len(t, farmers, 2)
	assert.Equal(t, second.ID, farmers[0].ID, "newest first")
	assert.Equal(t, first.ID, farmers[1].ID)

	paged, err := s.ListByRole(ctx, models.RoleFarmer, store.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].ID)

	customers, err := s.ListByRole(ctx, models.RoleCustomer, store.Page{})
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	require.NoError(t, s.Delete(ctx, customers[0].ID))
	empty, err := s.ListByRole(ctx, models.RoleCustomer, store.Page{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testUpdate(t *testing.T, s store.UserStore) {
	ctx := context.Background()

	u := Farmer("update@example.com")
	require.NoError(t, s.Create(ctx, u))

	name := "Grace"
	bio := "grows tomatoes"
	details := models.FarmerDetails{
		FarmName:       "Hopper Farm",
		Specialization: models.SpecializationMixed,
		FarmSize:       models.FarmSize{Value: 3, Unit: models.UnitAcres},
	}
	updated, err := s.Update(ctx, u.ID, models.UserChanges{
		FirstName:     &name,
		Bio:           &bio,
		FarmerDetails: &details,
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Equal(t, "grows tomatoes", updated.Bio)
	require.NotNil(t, updated.FarmerDetails)
	assert.Equal(t, "Hopper Farm", updated.FarmerDetails.FarmName)
	assert.Equal(t, "hash:update@example.com", updated.PasswordHash)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.FirstName)
	assert.Equal(t, models.SpecializationMixed, got.FarmerDetails.Specialization)
}

func testResetToken(t *testing.T, s store.UserStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	u := Customer("reset@example.com")
	require.NoError(t, s.Create(ctx, u))

	require.NoError(t, s.SetResetToken(ctx, u.ID, "first", now.Add(time.Hour)))
	require.NoError(t, s.SetResetToken(ctx, u.ID, "second", now.Add(time.Hour)))

	_, err := s.GetByResetToken(ctx, "first", now)
	assert.ErrorIs(t, err, store.ErrNotFound, "replaced token must not match")

	got, err := s.GetByResetToken(ctx, "second", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.HasPendingReset(now))

	_, err = s.GetByResetToken(ctx, "second", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, store.ErrNotFound, "expired token must not match")

	require.NoError(t, s.ClearResetToken(ctx, u.ID))
	_, err = s.GetByResetToken(ctx, "second", now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUpdatePasswordClearsReset(t *testing.T, s store.UserStore) {
	ctx := context.Background()
	now := time.Now().UTC()

	u := Customer("pw@example.com")
	require.NoError(t, s.Create(ctx, u))
	require.NoError(t, s.SetResetToken(ctx, u.ID, "tok", now.Add(time.Hour)))

	require.NoError(t, s.UpdatePassword(ctx, u.ID, "new-hash"))

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.False(t, got.HasPendingReset(now))

	_, err = s.GetByResetToken(ctx, "tok", now)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.UpdatePassword(ctx, "00000000-0000-0000-0000-000000000000", "x"), store.ErrNotFound)
}

func testConsumeResetToken(t *testing.T, s store.UserStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	u := Customer("consume@example.com")
	require.NoError(t, s.Create(ctx, u))
	require.NoError(t, s.SetResetToken(ctx, u.ID, "tok", now.Add(time.Hour)))

	assert.ErrorIs(t, s.ConsumeResetToken(ctx, u.ID, "other", "x", now), store.ErrNotFound, "wrong token")
	assert.ErrorIs(t, s.ConsumeResetToken(ctx, u.ID, "tok", "x", now.Add(2*time.Hour)), store.ErrNotFound, "expired token")

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.PasswordHash, got.PasswordHash, "failed consume must not touch the password")

	require.NoError(t, s.ConsumeResetToken(ctx, u.ID, "tok", "new-hash", now))
	got, err = s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.False(t, got.HasPendingReset(now))

	assert.ErrorIs(t, s.ConsumeResetToken(ctx, u.ID, "tok", "again", now), store.ErrNotFound, "token is single use")
	assert.ErrorIs(t, s.ConsumeResetToken(ctx, "00000000-0000-0000-0000-000000000000", "tok", "x", now), store.ErrNotFound)
}

func testConsumeResetTokenOnce(t *testing.T, s store.UserStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	u := Customer("race@example.com")
	require.NoError(t, s.Create(ctx, u))
	require.NoError(t, s.SetResetToken(ctx, u.ID, "tok", now.Add(time.Hour)))

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.ConsumeResetToken(ctx, u.ID, "tok", "hash", now)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
	assert.Equal(t, 1, ok, "exactly one consumer wins")
}

func testDelete(t *testing.T, s store.UserStore) {
	ctx := context.Background()

	u := Customer("gone@example.com")
	require.NoError(t, s.Create(ctx, u))
	require.NoError(t, s.Delete(ctx, u.ID))

	_, err := s.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Create(ctx, Customer("gone@example.com")), "email is free again")
}
