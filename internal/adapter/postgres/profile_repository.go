package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// profileColumns must match the Scan order in scanProfile.
const profileColumns = `id, display_name, bio, city, age, tier, auto_reply_enabled, auto_reply_prompt,
	last_seen_at, created_at, updated_at`

const foreignKeyViolation = "23503"

type ProfileRepo struct {
	pool *pgxpool.Pool
}

var _ domain.ProfileRepository = (*ProfileRepo)(nil)

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p        domain.Profile
		lastSeen *time.Time
	)
	err := row.Scan(&p.ID, &p.DisplayName, &p.Bio, &p.City, &p.Age, &p.Tier, &p.AutoReplyEnabled,
		&p.AutoReplyPrompt, &lastSeen, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastSeen != nil {
		p.LastSeenAt = *lastSeen
	}
	return &p, nil
}

func collectProfiles(rows pgx.Rows) ([]domain.Profile, error) {
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// Ensure creates the profile on first sign-in. An existing profile keeps its
// display name unless it is still empty.
func (r *ProfileRepo) Ensure(ctx context.Context, id uuid.UUID, displayName string) (*domain.Profile, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, display_name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET display_name = CASE
			WHEN profiles.display_name = '' THEN EXCLUDED.display_name
			ELSE profiles.display_name
		END
		RETURNING `+profileColumns, id, displayName)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// List returns profiles in browse order (updated_at desc, id desc), starting
// after filter.After when set.
func (r *ProfileRepo) List(ctx context.Context, filter domain.ProfileFilter) ([]domain.Profile, error) {
	where := []string{"id <> $1", "display_name <> ''"}
	args := []any{filter.ExcludeID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.City != "" {
		where = append(where, "lower(city) = lower("+arg(filter.City)+")")
	}
	if !filter.SeenSince.IsZero() {
		where = append(where, "last_seen_at >= "+arg(filter.SeenSince))
	}
	if filter.MinAge > 0 {
		where = append(where, "age >= "+arg(filter.MinAge))
	}
	if filter.MaxAge > 0 {
		where = append(where, "age BETWEEN 1 AND "+arg(filter.MaxAge))
	}
	if filter.After != nil {
		where = append(where, fmt.Sprintf("(updated_at, id) < (%s, %s)", arg(filter.After.UpdatedAt), arg(filter.After.ID)))
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY updated_at DESC, id DESC LIMIT ` + arg(filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	profiles, err := collectProfiles(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan profiles: %w", err)
	}
	return profiles, nil
}

func (r *ProfileRepo) Update(ctx context.Context, id uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE profiles SET
			display_name       = COALESCE($2, display_name),
			bio                = COALESCE($3, bio),
			city               = COALESCE($4, city),
			age                = COALESCE($5, age),
			auto_reply_enabled = COALESCE($6, auto_reply_enabled),
			auto_reply_prompt  = COALESCE($7, auto_reply_prompt),
			updated_at         = NOW()
		WHERE id = $1
		RETURNING `+profileColumns,
		id, upd.DisplayName, upd.Bio, upd.City, upd.Age, upd.AutoReplyEnabled, upd.AutoReplyPrompt)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// Touch records activity without moving the profile in browse order.
func (r *ProfileRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET last_seen_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepo) GetTier(ctx context.Context, id uuid.UUID) (domain.Tier, error) {
	var tier domain.Tier
	err := r.pool.QueryRow(ctx, `SELECT tier FROM profiles WHERE id = $1`, id).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrProfileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get tier: %w", err)
	}
	return tier, nil
}

type FavoriteRepo struct {
	pool *pgxpool.Pool
}

var _ domain.FavoriteRepository = (*FavoriteRepo)(nil)

func NewFavoriteRepo(pool *pgxpool.Pool) *FavoriteRepo {
	return &FavoriteRepo{pool: pool}
}

func (r *FavoriteRepo) Add(ctx context.Context, userID, profileID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO favorites (user_id, profile_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, profile_id) DO NOTHING`, userID, profileID, at)
	if isForeignKeyViolation(err) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *FavoriteRepo) Remove(ctx context.Context, userID, profileID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND profile_id = $2`, userID, profileID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (r *FavoriteRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.display_name, p.bio, p.city, p.age, p.tier, p.auto_reply_enabled, p.auto_reply_prompt,
			p.last_seen_at, p.created_at, p.updated_at
		FROM favorites f JOIN profiles p ON p.id = f.profile_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	profiles, err := collectProfiles(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan favorites: %w", err)
	}
	return profiles, nil
}
