package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/farmfresh/internal/store"
	"github.com/example/farmfresh/internal/store/storetest"
)

var _ store.UserStore = (*Store)(nil)

func TestContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.UserStore { return New() })
}

func TestReturnedUsersAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := storetest.Farmer("copy@example.com")
	require.NoError(t, s.Create(ctx, u))

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	got.FirstName = "Mutated"
	got.FarmerDetails.FarmName = "Mutated"

	again, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.FirstName)
	assert.Equal(t, "Green Acres", again.FarmerDetails.FarmName)
}
