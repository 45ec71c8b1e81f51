package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbuddy/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CompanionRepository interface {
	Profiles(ctx context.Context, ids []string) (map[string]domain.CompanionProfile, error)
	SetPayoutsEnabled(ctx context.Context, accountID string, enabled bool) error
}

type PGCompanionRepository struct {
	db *pgxpool.Pool
}

func NewCompanionRepository(db *pgxpool.Pool) CompanionRepository {
	return &PGCompanionRepository{db: db}
}

func (r *PGCompanionRepository) Profiles(ctx context.Context, ids []string) (map[string]domain.CompanionProfile, error) {
	profiles := make(map[string]domain.CompanionProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id, name, bio, interests, languages, skills, payouts_enabled
		FROM companion_profiles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.CompanionProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.Bio, &p.Interests, &p.Languages, &p.Skills, &p.PayoutsEnabled); err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

// SetPayoutsEnabled mirrors the connected account's payout capability onto the profile.
func (r *PGCompanionRepository) SetPayoutsEnabled(ctx context.Context, accountID string, enabled bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE companion_profiles SET payouts_enabled=$1, updated_at=now() WHERE connect_account_id=$2`, enabled, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("companion with account %s: %w", accountID, domain.ErrNotFound)
	}
	return nil
}

var _ CompanionRepository = (*PGCompanionRepository)(nil)
