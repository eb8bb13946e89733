package gormstore

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/store/storetest"
)

func TestRowRoundTripFarmer(t *testing.T) {
	u := storetest.Farmer("farmer@example.com")
	u.ID = uuid.NewString()
	expires := time.Now().Add(time.Hour)
	u.ResetTokenHash = "abc"
	u.ResetTokenExpiry = &expires

	row, err := fromUser(u)
	require.NoError(t, err)
	require.NotNil(t, row.FarmName)
	assert.Equal(t, "Green Acres", *row.FarmName)
	assert.Equal(t, "hash:farmer@example.com", row.Password)

	back := row.toUser()
	assert.Equal(t, u.ID, back.ID)
	assert.Equal(t, u.FarmerDetails, back.FarmerDetails)
	assert.Equal(t, "abc", back.ResetTokenHash)
	assert.True(t, back.HasPendingReset(time.Now()))
}

func TestRowCustomerHasNoFarmerColumns(t *testing.T) {
	row, err := fromUser(storetest.Customer("c@example.com"))
	require.NoError(t, err)
	assert.Nil(t, row.FarmName)
	assert.Nil(t, row.Specialization)
	assert.Equal(t, uuid.Nil, row.ID)

	assert.Nil(t, row.toUser().FarmerDetails)
}

func TestRowRejectsMalformedID(t *testing.T) {
	u := storetest.Customer("c@example.com")
	u.ID = "not-a-uuid"
	_, err := fromUser(u)
	assert.Error(t, err)
}

func TestChangeColumns(t *testing.T) {
	bio := "hi"
	cols := changeColumns(models.UserChanges{
		Bio: &bio,
		FarmerDetails: &models.FarmerDetails{
			FarmName:       "F",
			Specialization: models.SpecializationDairy,
			FarmSize:       models.FarmSize{Value: 1, Unit: models.UnitSqM},
		},
	})
	assert.Equal(t, map[string]any{
		"bio":             "hi",
		"farm_name":       "F",
		"specialization":  "dairy",
		"farm_size_value": 1.0,
		"farm_size_unit":  "sq_m",
	}, cols)

	assert.Empty(t, changeColumns(models.UserChanges{}))
}

func TestEnsureDatabaseIgnoresKeyValueDSN(t *testing.T) {
	assert.NoError(t, ensureDatabase(t.Context(), "host=localhost user=x dbname=y"))
}
