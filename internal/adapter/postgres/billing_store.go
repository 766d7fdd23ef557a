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

// subscriptionColumns must match the Scan order in scanSubscription.
const subscriptionColumns = `user_id, stripe_customer_id, stripe_subscription_id, tier, status,
	current_period_end, payment_failed_at, canceled_at, last_event_at, created_at, updated_at`

// BillingStore keeps the webhook ledger and subscription state. Every
// transition is applied in a single transaction together with its ledger row.
type BillingStore struct {
	pool *pgxpool.Pool
}

var _ domain.BillingStore = (*BillingStore)(nil)

func NewBillingStore(pool *pgxpool.Pool) *BillingStore {
	return &BillingStore{pool: pool}
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(&s.UserID, &s.StripeCustomerID, &s.StripeSubscriptionID, &s.Tier, &s.Status,
		&s.CurrentPeriodEnd, &s.PaymentFailedAt, &s.CanceledAt, &s.LastEventAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *BillingStore) GetSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

func (s *BillingStore) ApplyTransition(ctx context.Context, eventID, eventType string, t domain.SubscriptionTransition) (domain.TransitionResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO webhook_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType)
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to record webhook event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.TransitionResult{}, domain.ErrEventAlreadyProcessed
	}

	var res domain.TransitionResult
	if t.Kind == domain.TransitionActivate {
		res, err = applyActivate(ctx, tx, t)
	} else {
		res, err = applyUpdate(ctx, tx, t)
	}
	if err != nil {
		return domain.TransitionResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, nil
}

func applyActivate(ctx context.Context, tx pgx.Tx, t domain.SubscriptionTransition) (domain.TransitionResult, error) {
	// A checkout can complete before the profile row exists.
	if _, err := tx.Exec(ctx, `INSERT INTO profiles (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, t.UserID); err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to ensure profile: %w", err)
	}

	prevTier, err := lockProfileTier(ctx, tx, t.UserID)
	if err != nil {
		return domain.TransitionResult{}, err
	}

	var (
		status    domain.SubscriptionStatus
		lastEvent time.Time
	)
	err = tx.QueryRow(ctx,
		`SELECT status, last_event_at FROM subscriptions WHERE user_id = $1 FOR UPDATE`, t.UserID,
	).Scan(&status, &lastEvent)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return domain.TransitionResult{}, fmt.Errorf("failed to lock subscription: %w", err)
	case t.OccurredAt.Before(lastEvent):
		return domain.TransitionResult{UserID: t.UserID, Tier: prevTier, Status: status, Stale: true}, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO subscriptions (user_id, stripe_customer_id, stripe_subscription_id, tier, status, last_event_at)
		VALUES ($1, $2, $3, $4, 'active', $5)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id     = COALESCE(NULLIF(EXCLUDED.stripe_customer_id, ''), subscriptions.stripe_customer_id),
			stripe_subscription_id = COALESCE(NULLIF(EXCLUDED.stripe_subscription_id, ''), subscriptions.stripe_subscription_id),
			tier                   = EXCLUDED.tier,
			status                 = 'active',
			payment_failed_at      = NULL,
			canceled_at            = NULL,
			last_event_at          = EXCLUDED.last_event_at,
			updated_at             = NOW()`,
		t.UserID, t.CustomerID, t.SubscriptionID, t.Tier, t.OccurredAt)
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	if err := setProfileTier(ctx, tx, t.UserID, prevTier, t.Tier); err != nil {
		return domain.TransitionResult{}, err
	}
	return domain.TransitionResult{
		UserID:      t.UserID,
		Tier:        t.Tier,
		Status:      domain.StatusActive,
		TierChanged: prevTier != t.Tier,
	}, nil
}

func applyUpdate(ctx context.Context, tx pgx.Tx, t domain.SubscriptionTransition) (domain.TransitionResult, error) {
	var (
		userID    uuid.UUID
		subTier   domain.Tier
		status    domain.SubscriptionStatus
		lastEvent time.Time
	)
	err := tx.QueryRow(ctx, `
		SELECT user_id, tier, status, last_event_at FROM subscriptions
		WHERE stripe_subscription_id = $1 FOR UPDATE`, t.SubscriptionID,
	).Scan(&userID, &subTier, &status, &lastEvent)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TransitionResult{}, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to lock subscription: %w", err)
	}

	prevTier, err := lockProfileTier(ctx, tx, userID)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	if t.OccurredAt.Before(lastEvent) {
		return domain.TransitionResult{UserID: userID, Tier: prevTier, Status: status, Stale: true}, nil
	}

	var (
		query   string
		newTier domain.Tier
	)
	args := []any{userID, t.OccurredAt, t.CustomerID}
	switch t.Kind {
	case domain.TransitionRenew:
		status, newTier = domain.StatusActive, subTier
		query = `UPDATE subscriptions SET status = 'active', payment_failed_at = NULL,
			current_period_end = COALESCE($4, current_period_end),`
		args = append(args, t.PeriodEnd)
	case domain.TransitionCancel:
		status, newTier = domain.StatusCanceled, domain.TierFree
		query = `UPDATE subscriptions SET status = 'canceled', canceled_at = $2,`
	case domain.TransitionPaymentFailed:
		status, newTier = domain.StatusPastDue, prevTier
		query = `UPDATE subscriptions SET status = 'past_due', payment_failed_at = $2,`
	default:
		return domain.TransitionResult{}, fmt.Errorf("unknown transition kind %q", t.Kind)
	}
	query += `
		stripe_customer_id = COALESCE(NULLIF($3, ''), stripe_customer_id),
		last_event_at = $2,
		updated_at = NOW()
		WHERE user_id = $1`

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to update subscription: %w", err)
	}
	if err := setProfileTier(ctx, tx, userID, prevTier, newTier); err != nil {
		return domain.TransitionResult{}, err
	}

	return domain.TransitionResult{
		UserID:      userID,
		Tier:        newTier,
		Status:      status,
		TierChanged: prevTier != newTier,
	}, nil
}

func lockProfileTier(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (domain.Tier, error) {
	var tier domain.Tier
	err := tx.QueryRow(ctx, `SELECT tier FROM profiles WHERE id = $1 FOR UPDATE`, userID).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrProfileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock profile: %w", err)
	}
	return tier, nil
}

func setProfileTier(ctx context.Context, tx pgx.Tx, userID uuid.UUID, prev, next domain.Tier) error {
	if prev == next {
		return nil
	}
	if _, err := tx.Exec(ctx, `UPDATE profiles SET tier = $2 WHERE id = $1`, userID, next); err != nil {
		return fmt.Errorf("failed to update profile tier: %w", err)
	}
	return nil
}

// PruneEvents deletes ledger rows processed before olderThan, or only counts
// them when dryRun is set.
func (s *BillingStore) PruneEvents(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error) {
	if dryRun {
		var n int64
		err := s.pool.QueryRow(ctx, `SELECT count(*) FROM webhook_events WHERE processed_at < $1`, olderThan).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("failed to count webhook events: %w", err)
		}
		return n, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM webhook_events WHERE processed_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune webhook events: %w", err)
	}
	return tag.RowsAffected(), nil
}
