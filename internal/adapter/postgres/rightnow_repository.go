package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RightNowRepo struct {
	pool *pgxpool.Pool
}

var _ domain.RightNowRepository = (*RightNowRepo)(nil)

func NewRightNowRepo(pool *pgxpool.Pool) *RightNowRepo {
	return &RightNowRepo{pool: pool}
}

func (r *RightNowRepo) Upsert(ctx context.Context, p domain.RightNowPost) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO right_now_posts (user_id, lat, lng, message, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			message = EXCLUDED.message,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`,
		p.UserID, p.Lat, p.Lng, p.Message, p.CreatedAt, p.ExpiresAt)
	if isForeignKeyViolation(err) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to upsert right-now post: %w", err)
	}
	return nil
}

// ListActive returns unexpired posts inside box. Exact distance filtering is
// left to the caller.
func (r *RightNowRepo) ListActive(ctx context.Context, now time.Time, box domain.BoundingBox) ([]domain.RightNowPost, error) {
	query := `SELECT user_id, lat, lng, message, created_at, expires_at FROM right_now_posts
		WHERE expires_at > $1 AND lat BETWEEN $2 AND $3`
	args := []any{now, box.MinLat, box.MaxLat}
	if !box.SpansAntimeridian() {
		query += ` AND lng BETWEEN $4 AND $5`
		args = append(args, box.MinLng, box.MaxLng)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list right-now posts: %w", err)
	}
	defer rows.Close()

	var out []domain.RightNowPost
	for rows.Next() {
		var p domain.RightNowPost
		if err := rows.Scan(&p.UserID, &p.Lat, &p.Lng, &p.Message, &p.CreatedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan right-now post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *RightNowRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM right_now_posts WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete right-now post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRightNowNotFound
	}
	return nil
}

func (r *RightNowRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM right_now_posts WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired right-now posts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// photoColumns must match the Scan order in scanPhoto.
const photoColumns = `id, profile_id, object_key, content_type, created_at`

type PhotoRepo struct {
	pool *pgxpool.Pool
}

var _ domain.PhotoRepository = (*PhotoRepo)(nil)

func NewPhotoRepo(pool *pgxpool.Pool) *PhotoRepo {
	return &PhotoRepo{pool: pool}
}

func scanPhoto(row pgx.Row) (*domain.Photo, error) {
	var p domain.Photo
	if err := row.Scan(&p.ID, &p.ProfileID, &p.ObjectKey, &p.ContentType, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create locks the owning profile while counting, so parallel uploads cannot
// exceed the per-profile limit.
func (r *PhotoRepo) Create(ctx context.Context, p domain.Photo) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM profiles WHERE id = $1 FOR UPDATE`, p.ProfileID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock profile: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM photos WHERE profile_id = $1`, p.ProfileID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count photos: %w", err)
	}
	if count >= domain.MaxPhotosPerProfile {
		return domain.ErrPhotoLimit
	}

	_, err = tx.Exec(ctx, `INSERT INTO photos (`+photoColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.ProfileID, p.ObjectKey, p.ContentType, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PhotoRepo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Photo, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+photoColumns+` FROM photos WHERE profile_id = $1 ORDER BY created_at, id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	var out []domain.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Delete removes the photo row and returns it so the caller can delete the object.
func (r *PhotoRepo) Delete(ctx context.Context, profileID, photoID uuid.UUID) (*domain.Photo, error) {
	row := r.pool.QueryRow(ctx, `DELETE FROM photos WHERE id = $1 AND profile_id = $2 RETURNING `+photoColumns, photoID, profileID)
	p, err := scanPhoto(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete photo: %w", err)
	}
	return p, nil
}
