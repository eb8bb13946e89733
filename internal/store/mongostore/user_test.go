package mongostore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/store"
)

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(nil))
	assert.ErrorIs(t, wrapError(mongo.ErrNoDocuments), store.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, wrapError(dup), store.ErrDuplicate)

	other := errors.New("boom")
	assert.Equal(t, other, wrapError(other))
}

func TestDocToUser(t *testing.T) {
	expires := time.Now()
	doc := userDoc{
		ID:       "id-1",
		UserType: "farmer",
		Email:    "f@example.com",
		Password: "hash",
		FarmerDetails: &farmerDoc{
			FarmName:       "Green",
			Specialization: "fruits",
			FarmSize:       4,
			FarmSizeUnit:   "acres",
		},
		ResetToken:   "tok",
		ResetExpires: &expires,
	}

	u := doc.toUser()
	assert.Equal(t, models.RoleFarmer, u.Role)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, &models.FarmerDetails{
		FarmName:       "Green",
		Specialization: models.SpecializationFruits,
		FarmSize:       models.FarmSize{Value: 4, Unit: models.UnitAcres},
	}, u.FarmerDetails)
	assert.Equal(t, "tok", u.ResetTokenHash)
	assert.True(t, u.HasPendingReset(expires.Add(-time.Minute)))

	doc.FarmerDetails = nil
	assert.Nil(t, doc.toUser().FarmerDetails)
}
