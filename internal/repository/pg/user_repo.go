package pg

import (
	"context"
	"errors"

	"shipwise-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type userProfileRepository struct {
	db DB
}

func NewUserProfileRepository(db DB) domain.UserProfileRepository {
	return &userProfileRepository{db: db}
}

func (r *userProfileRepository) GetEarlyCODSetting(ctx context.Context, userID string) (string, error) {
	var setting string
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COALESCE(early_cod, '') FROM user_profiles WHERE user_id = $1`, userID).Scan(&setting)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return setting, err
}
