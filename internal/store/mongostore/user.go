package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/store"
)

var _ store.UserStore = (*Store)(nil)

// userDoc is the stored shape of a User.
type userDoc struct {
	ID             string     `bson:"_id"`
	UserType       string     `bson:"userType"`
	FirstName      string     `bson:"firstName"`
	LastName       string     `bson:"lastName"`
	Email          string     `bson:"email"`
	Phone          string     `bson:"phone"`
	Address        string     `bson:"address"`
	Bio            string     `bson:"bio"`
	ProfilePicture string     `bson:"profilePicture"`
	Password       string     `bson:"password"`
	FarmerDetails  *farmerDoc `bson:"farmerDetails,omitempty"`
	ResetToken     string     `bson:"resetPasswordToken,omitempty"`
	ResetExpires   *time.Time `bson:"resetPasswordExpires,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt"`
}

type farmerDoc struct {
	FarmName       string  `bson:"farmName"`
	Specialization string  `bson:"specialization"`
	FarmSize       float64 `bson:"farmSize"`
	FarmSizeUnit   string  `bson:"farmSizeUnit"`
}

func newFarmerDoc(d models.FarmerDetails) *farmerDoc {
	return &farmerDoc{
		FarmName:       d.FarmName,
		Specialization: string(d.Specialization),
		FarmSize:       d.FarmSize.Value,
		FarmSizeUnit:   string(d.FarmSize.Unit),
	}
}

func (d *userDoc) toUser() *models.User {
	u := &models.User{
		BaseModel: models.BaseModel{
			ID:        d.ID,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		Role:           models.Role(d.UserType),
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Email:          d.Email,
		Phone:          d.Phone,
		Address:        d.Address,
		Bio:            d.Bio,
		ProfilePicture: d.ProfilePicture,
		PasswordHash:   d.Password,
		ResetTokenHash: d.ResetToken,
	}
	if d.ResetExpires != nil {
		e := *d.ResetExpires
		u.ResetTokenExpiry = &e
	}
	if f := d.FarmerDetails; f != nil {
		u.FarmerDetails = &models.FarmerDetails{
			FarmName:       f.FarmName,
			Specialization: models.Specialization(f.Specialization),
			FarmSize: models.FarmSize{
				Value: f.FarmSize,
				Unit:  models.FarmSizeUnit(f.FarmSizeUnit),
			},
		}
	}
	return u
}

// now is truncated to milliseconds, the resolution BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *Store) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ts := now()
	doc := userDoc{
		ID:             u.ID,
		UserType:       string(u.Role),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Phone:          u.Phone,
		Address:        u.Address,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		Password:       u.PasswordHash,
		ResetToken:     u.ResetTokenHash,
		ResetExpires:   u.ResetTokenExpiry,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	if u.FarmerDetails != nil {
		doc.FarmerDetails = newFarmerDoc(*u.FarmerDetails)
	}

	if _, err := s.col().InsertOne(ctx, doc); err != nil {
		return wrapError(err)
	}
	u.CreatedAt = ts
	u.UpdatedAt = ts
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetByResetToken(ctx context.Context, tokenHash string, at time.Time) (*models.User, error) {
	return s.getUser(ctx, bson.D{
		{Key: "resetPasswordToken", Value: tokenHash},
		{Key: "resetPasswordExpires", Value: bson.D{{Key: "$gt", Value: at}}},
	})
}

func (s *Store) ListByRole(ctx context.Context, role models.Role, page store.Page) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}

	docs, err := findMany(ctx, s.col(), bson.D{{Key: "userType", Value: string(role)}}, opts)
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toUser())
	}
	return users, nil
}

func (s *Store) Update(ctx context.Context, id string, changes models.UserChanges) (*models.User, error) {
	set := bson.D{{Key: "updatedAt", Value: now()}}
	add := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}
	add("firstName", changes.FirstName)
	add("lastName", changes.LastName)
	add("phone", changes.Phone)
	add("address", changes.Address)
	add("bio", changes.Bio)
	add("profilePicture", changes.ProfilePicture)
	if changes.FarmerDetails != nil {
		set = append(set, bson.E{Key: "farmerDetails", Value: newFarmerDoc(*changes.FarmerDetails)})
	}

	if err := updateByID(ctx, s.col(), id, bson.D{{Key: "$set", Value: set}}); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return updateByID(ctx, s.col(), id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "updatedAt", Value: now()},
		}},
		{Key: "$unset", Value: resetFields()},
	})
}

func (s *Store) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, at time.Time) error {
	res, err := s.col().UpdateOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "resetPasswordToken", Value: tokenHash},
		{Key: "resetPasswordExpires", Value: bson.D{{Key: "$gt", Value: at}}},
	}, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "updatedAt", Value: now()},
		}},
		{Key: "$unset", Value: resetFields()},
	})
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return updateByID(ctx, s.col(), id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "resetPasswordToken", Value: tokenHash},
			{Key: "resetPasswordExpires", Value: expiresAt},
			{Key: "updatedAt", Value: now()},
		}},
	})
}

func (s *Store) ClearResetToken(ctx context.Context, id string) error {
	return updateByID(ctx, s.col(), id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now()}}},
		{Key: "$unset", Value: resetFields()},
	})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.col().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) getUser(ctx context.Context, filter bson.D) (*models.User, error) {
	doc, err := findOne(ctx, s.col(), filter)
	if err != nil {
		return nil, err
	}
	return doc.toUser(), nil
}

func resetFields() bson.D {
	return bson.D{
		{Key: "resetPasswordToken", Value: ""},
		{Key: "resetPasswordExpires", Value: ""},
	}
}
