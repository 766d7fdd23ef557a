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

// bookingColumns must match the Scan order in scanBooking.
const bookingColumns = `id, client_id, provider_id, starts_at, duration_minutes, note, status, created_at, updated_at`

type BookingRepo struct {
	pool *pgxpool.Pool
}

var _ domain.BookingRepository = (*BookingRepo)(nil)

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.ClientID, &b.ProviderID, &b.StartsAt, &b.DurationMinutes, &b.Note, &b.Status,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.ClientID, b.ProviderID, b.StartsAt, b.DurationMinutes, b.Note, b.Status, b.CreatedAt, b.UpdatedAt)
	if isForeignKeyViolation(err) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (r *BookingRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE client_id = $1 OR provider_id = $1
		ORDER BY starts_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateStatus is a compare-and-set on status, so two concurrent actions on
// the same booking cannot both succeed.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`, id, from, to, at)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if !exists {
		return domain.ErrBookingNotFound
	}
	return fmt.Errorf("%w: booking is no longer %s", domain.ErrBookingTransition, from)
}

type PartyRepo struct {
	pool *pgxpool.Pool
}

var _ domain.PartyRepository = (*PartyRepo)(nil)

func NewPartyRepo(pool *pgxpool.Pool) *PartyRepo {
	return &PartyRepo{pool: pool}
}

func (r *PartyRepo) Create(ctx context.Context, p domain.Party) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO parties (id, host_id, title, description, location, starts_at, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.HostID, p.Title, p.Description, p.Location, p.StartsAt, p.Capacity, p.CreatedAt)
	if isForeignKeyViolation(err) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create party: %w", err)
	}
	return nil
}

func (r *PartyRepo) ListUpcoming(ctx context.Context, after time.Time, limit int) ([]domain.Party, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, host_id, title, description, location, starts_at, capacity, attendees, created_at
		FROM parties
		WHERE starts_at > $1
		ORDER BY starts_at, id
		LIMIT $2`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}
	defer rows.Close()

	var out []domain.Party
	for rows.Next() {
		var p domain.Party
		if err := rows.Scan(&p.ID, &p.HostID, &p.Title, &p.Description, &p.Location, &p.StartsAt,
			&p.Capacity, &p.Attendees, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RSVP locks the party row so the attendee count never passes capacity.
// Repeating an RSVP is a no-op, even when the party has since filled up.
func (r *PartyRepo) RSVP(ctx context.Context, partyID, userID uuid.UUID, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var capacity, attendees int
	err = tx.QueryRow(ctx, `SELECT capacity, attendees FROM parties WHERE id = $1 FOR UPDATE`, partyID).
		Scan(&capacity, &attendees)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrPartyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock party: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO party_rsvps (party_id, user_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (party_id, user_id) DO NOTHING`, partyID, userID, at)
	if isForeignKeyViolation(err) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to insert rsvp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	if attendees >= capacity {
		return domain.ErrPartyFull
	}

	if _, err := tx.Exec(ctx, `UPDATE parties SET attendees = attendees + 1 WHERE id = $1`, partyID); err != nil {
		return fmt.Errorf("failed to count rsvp: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PartyRepo) CancelRSVP(ctx context.Context, partyID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM parties WHERE id = $1)`, partyID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check party: %w", err)
	}
	if !exists {
		return domain.ErrPartyNotFound
	}

	tag, err := tx.Exec(ctx, `DELETE FROM party_rsvps WHERE party_id = $1 AND user_id = $2`, partyID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rsvp: %w", err)
	}
	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx, `UPDATE parties SET attendees = attendees - 1 WHERE id = $1`, partyID); err != nil {
			return fmt.Errorf("failed to uncount rsvp: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
