package billing

import (
	"context"
	"sync"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
)

type mockBillingStore struct {
	mu                sync.Mutex
	calls             []string
	applyTransitionFn func(ctx context.Context, eventID, eventType string, t domain.SubscriptionTransition) (domain.TransitionResult, error)
	getSubscriptionFn func(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	pruneEventsFn     func(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}

func (m *mockBillingStore) ApplyTransition(ctx context.Context, eventID, eventType string, t domain.SubscriptionTransition) (domain.TransitionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, eventID)
	m.mu.Unlock()
	if m.applyTransitionFn != nil {
		return m.applyTransitionFn(ctx, eventID, eventType, t)
	}
	return domain.TransitionResult{}, nil
}

func (m *mockBillingStore) GetSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	if m.getSubscriptionFn != nil {
		return m.getSubscriptionFn(ctx, userID)
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (m *mockBillingStore) PruneEvents(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error) {
	if m.pruneEventsFn != nil {
		return m.pruneEventsFn(ctx, olderThan, dryRun)
	}
	return 0, nil
}

func (m *mockBillingStore) applyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockTierCache struct {
	invalidated []uuid.UUID
	err         error
}

func (m *mockTierCache) Get(context.Context, uuid.UUID) (domain.Tier, error) {
	return domain.TierFree, nil
}

func (m *mockTierCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	m.invalidated = append(m.invalidated, userID)
	return m.err
}

type mockNotifier struct {
	mu     sync.Mutex
	events map[uuid.UUID][]domain.RealtimeEvent
}

func (m *mockNotifier) Publish(userID uuid.UUID, ev domain.RealtimeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		m.events = make(map[uuid.UUID][]domain.RealtimeEvent)
	}
	m.events[userID] = append(m.events[userID], ev)
}

type mockVerifier struct {
	verifyFn func(payload []byte, header string) (domain.PaymentEvent, error)
}

func (m *mockVerifier) Verify(payload []byte, header string) (domain.PaymentEvent, error) {
	return m.verifyFn(payload, header)
}
