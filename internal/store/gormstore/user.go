package gormstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/store"
)

var _ store.UserStore = (*Store)(nil)

func (s *Store) Create(ctx context.Context, u *models.User) error {
	row, err := fromUser(u)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	u.ID = row.ID.String()
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}
	return s.first(ctx, "id = ?", id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *Store) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return s.first(ctx, "reset_password_token = ? AND reset_password_expires > ?", tokenHash, now)
}

func (s *Store) ListByRole(ctx context.Context, role models.Role, page store.Page) ([]*models.User, error) {
	q := s.db.WithContext(ctx).Where("user_type = ?", string(role)).Order("created_at DESC")
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}

	var rows []userRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate(err)
	}

	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toUser())
	}
	return users, nil
}

func (s *Store) Update(ctx context.Context, id string, changes models.UserChanges) (*models.User, error) {
	cols := changeColumns(changes)
	if len(cols) == 0 {
		return s.GetByID(ctx, id)
	}
	if err := s.updateColumns(ctx, id, cols); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.updateColumns(ctx, id, map[string]any{
		"password":               passwordHash,
		"reset_password_token":   nil,
		"reset_password_expires": nil,
	})
}

func (s *Store) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	return s.updateColumnsWhere(ctx, id, map[string]any{
		"password":               passwordHash,
		"reset_password_token":   nil,
		"reset_password_expires": nil,
	}, "reset_password_token = ? AND reset_password_expires > ?", tokenHash, now)
}

func (s *Store) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.updateColumns(ctx, id, map[string]any{
		"reset_password_token":   tokenHash,
		"reset_password_expires": expiresAt,
	})
}

func (s *Store) ClearResetToken(ctx context.Context, id string) error {
	return s.updateColumns(ctx, id, map[string]any{
		"reset_password_token":   nil,
		"reset_password_expires": nil,
	})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&userRow{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) first(ctx context.Context, query string, args ...any) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where(query, args...).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return row.toUser(), nil
}

func (s *Store) updateColumns(ctx context.Context, id string, cols map[string]any) error {
	return s.updateColumnsWhere(ctx, id, cols, "")
}

// updateColumnsWhere updates the row with id when cond also holds. A miss on
// either is ErrNotFound.
func (s *Store) updateColumnsWhere(ctx context.Context, id string, cols map[string]any, cond string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}
	cols["updated_at"] = time.Now()

	q := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	res := q.Updates(cols)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
