package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
)

var errNotImplemented = errors.New("not implemented")

var testNow = time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)

type mockProfileRepo struct {
	ensureFn  func(ctx context.Context, id uuid.UUID, displayName string) (*domain.Profile, error)
	getByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	listFn    func(ctx context.Context, filter domain.ProfileFilter) ([]domain.Profile, error)
	updateFn  func(ctx context.Context, id uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error)
	touchFn   func(ctx context.Context, id uuid.UUID, at time.Time) error
	getTierFn func(ctx context.Context, id uuid.UUID) (domain.Tier, error)
}

func (m *mockProfileRepo) Ensure(ctx context.Context, id uuid.UUID, displayName string) (*domain.Profile, error) {
	if m.ensureFn != nil {
		return m.ensureFn(ctx, id, displayName)
	}
	return &domain.Profile{ID: id, DisplayName: displayName, Tier: domain.TierFree}, nil
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Profile{ID: id, DisplayName: "someone", Tier: domain.TierFree}, nil
}

func (m *mockProfileRepo) List(ctx context.Context, filter domain.ProfileFilter) ([]domain.Profile, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockProfileRepo) Update(ctx context.Context, id uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, upd)
	}
	return nil, errNotImplemented
}

func (m *mockProfileRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.touchFn != nil {
		return m.touchFn(ctx, id, at)
	}
	return nil
}

func (m *mockProfileRepo) GetTier(ctx context.Context, id uuid.UUID) (domain.Tier, error) {
	if m.getTierFn != nil {
		return m.getTierFn(ctx, id)
	}
	return domain.TierFree, nil
}

type mockFavoriteRepo struct {
	addFn    func(ctx context.Context, userID, profileID uuid.UUID, at time.Time) error
	removeFn func(ctx context.Context, userID, profileID uuid.UUID) error
	listFn   func(ctx context.Context, userID uuid.UUID) ([]domain.Profile, error)
}

func (m *mockFavoriteRepo) Add(ctx context.Context, userID, profileID uuid.UUID, at time.Time) error {
	if m.addFn != nil {
		return m.addFn(ctx, userID, profileID, at)
	}
	return nil
}

func (m *mockFavoriteRepo) Remove(ctx context.Context, userID, profileID uuid.UUID) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, userID, profileID)
	}
	return nil
}

func (m *mockFavoriteRepo) List(ctx context.Context, userID uuid.UUID) ([]domain.Profile, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

// memMessageRepo keeps messages in memory so conversation tests can read back
// what was written.
type memMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
	createFn func(ctx context.Context, m domain.Message) error
}

func (r *memMessageRepo) Create(ctx context.Context, m domain.Message) error {
	if r.createFn != nil {
		if err := r.createFn(ctx, m); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *memMessageRepo) ListConversation(_ context.Context, userID, peerID uuid.UUID, before time.Time, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Message
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.messages[i]
		pair := (m.SenderID == userID && m.RecipientID == peerID) || (m.SenderID == peerID && m.RecipientID == userID)
		if pair && (before.IsZero() || m.CreatedAt.Before(before)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMessageRepo) ListThreads(_ context.Context, userID uuid.UUID, _ int) ([]domain.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest := map[uuid.UUID]domain.Thread{}
	var order []uuid.UUID
	for _, m := range r.messages {
		peer := m.SenderID
		if peer == userID {
			peer = m.RecipientID
		} else if m.RecipientID != userID {
			continue
		}
		th, ok := latest[peer]
		if !ok {
			order = append(order, peer)
		}
		th.PeerID = peer
		th.LastMessage = m
		if m.RecipientID == userID && m.ReadAt == nil {
			th.UnreadCount++
		}
		latest[peer] = th
	}

	out := make([]domain.Thread, 0, len(order))
	for _, p := range order {
		out = append(out, latest[p])
	}
	return out, nil
}

func (r *memMessageRepo) MarkRead(_ context.Context, recipientID, senderID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.RecipientID == recipientID && m.SenderID == senderID && m.ReadAt == nil {
			m.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepo) all() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.messages...)
}

type mockTierCache struct {
	getFn        func(ctx context.Context, userID uuid.UUID) (domain.Tier, error)
	invalidateFn func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockTierCache) Get(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return domain.TierFree, nil
}

func (m *mockTierCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, userID)
	}
	return nil
}

func tierOf(tier domain.Tier) *mockTierCache {
	return &mockTierCache{getFn: func(context.Context, uuid.UUID) (domain.Tier, error) { return tier, nil }}
}

type mockReplyGenerator struct {
	replyFn func(ctx context.Context, persona string, history []domain.ChatTurn) (string, error)
}

func (m *mockReplyGenerator) Reply(ctx context.Context, persona string, history []domain.ChatTurn) (string, error) {
	if m.replyFn != nil {
		return m.replyFn(ctx, persona, history)
	}
	return "", errNotImplemented
}

type publishedEvent struct {
	userID uuid.UUID
	event  domain.RealtimeEvent
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(userID uuid.UUID, ev domain.RealtimeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{userID: userID, event: ev})
}

func (n *recordingNotifier) published() []publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]publishedEvent(nil), n.events...)
}

type mockBookingRepo struct {
	createFn       func(ctx context.Context, b domain.Booking) error
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	listForUserFn  func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, at time.Time) error
}

func (m *mockBookingRepo) Create(ctx context.Context, b domain.Booking) error {
	if m.createFn != nil {
		return m.createFn(ctx, b)
	}
	return nil
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrBookingNotFound
}

func (m *mockBookingRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, at time.Time) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, from, to, at)
	}
	return nil
}

type mockPartyRepo struct {
	createFn       func(ctx context.Context, p domain.Party) error
	listUpcomingFn func(ctx context.Context, after time.Time, limit int) ([]domain.Party, error)
	rsvpFn         func(ctx context.Context, partyID, userID uuid.UUID, at time.Time) error
	cancelRSVPFn   func(ctx context.Context, partyID, userID uuid.UUID) error
}

func (m *mockPartyRepo) Create(ctx context.Context, p domain.Party) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockPartyRepo) ListUpcoming(ctx context.Context, after time.Time, limit int) ([]domain.Party, error) {
	if m.listUpcomingFn != nil {
		return m.listUpcomingFn(ctx, after, limit)
	}
	return nil, nil
}

func (m *mockPartyRepo) RSVP(ctx context.Context, partyID, userID uuid.UUID, at time.Time) error {
	if m.rsvpFn != nil {
		return m.rsvpFn(ctx, partyID, userID, at)
	}
	return nil
}

func (m *mockPartyRepo) CancelRSVP(ctx context.Context, partyID, userID uuid.UUID) error {
	if m.cancelRSVPFn != nil {
		return m.cancelRSVPFn(ctx, partyID, userID)
	}
	return nil
}

type mockRightNowRepo struct {
	upsertFn        func(ctx context.Context, p domain.RightNowPost) error
	listActiveFn    func(ctx context.Context, now time.Time, box domain.BoundingBox) ([]domain.RightNowPost, error)
	deleteFn        func(ctx context.Context, userID uuid.UUID) error
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockRightNowRepo) Upsert(ctx context.Context, p domain.RightNowPost) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, p)
	}
	return nil
}

func (m *mockRightNowRepo) ListActive(ctx context.Context, now time.Time, box domain.BoundingBox) ([]domain.RightNowPost, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, now, box)
	}
	return nil, nil
}

func (m *mockRightNowRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID)
	}
	return nil
}

func (m *mockRightNowRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, now)
	}
	return 0, nil
}

type mockPhotoRepo struct {
	createFn        func(ctx context.Context, p domain.Photo) error
	listByProfileFn func(ctx context.Context, profileID uuid.UUID) ([]domain.Photo, error)
	deleteFn        func(ctx context.Context, profileID, photoID uuid.UUID) (*domain.Photo, error)
}

func (m *mockPhotoRepo) Create(ctx context.Context, p domain.Photo) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockPhotoRepo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Photo, error) {
	if m.listByProfileFn != nil {
		return m.listByProfileFn(ctx, profileID)
	}
	return nil, nil
}

func (m *mockPhotoRepo) Delete(ctx context.Context, profileID, photoID uuid.UUID) (*domain.Photo, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, profileID, photoID)
	}
	return nil, domain.ErrPhotoNotFound
}

type mockObjectStorage struct {
	presignPutFn func(ctx context.Context, key, contentType string) (string, error)
	presignGetFn func(ctx context.Context, key string) (string, error)
	deleteFn     func(ctx context.Context, key string) error
}

func (m *mockObjectStorage) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	if m.presignPutFn != nil {
		return m.presignPutFn(ctx, key, contentType)
	}
	return "https://s3.test/put/" + key, nil
}

func (m *mockObjectStorage) PresignGet(ctx context.Context, key string) (string, error) {
	if m.presignGetFn != nil {
		return m.presignGetFn(ctx, key)
	}
	return "https://s3.test/get/" + key, nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

type mockBillingStore struct {
	applyTransitionFn func(ctx context.Context, eventID, eventType string, t domain.SubscriptionTransition) (domain.TransitionResult, error)
	getSubscriptionFn func(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	pruneEventsFn     func(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}

func (m *mockBillingStore) ApplyTransition(ctx context.Context, eventID, eventType string, t domain.SubscriptionTransition) (domain.TransitionResult, error) {
	if m.applyTransitionFn != nil {
		return m.applyTransitionFn(ctx, eventID, eventType, t)
	}
	return domain.TransitionResult{}, errNotImplemented
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

type mockCheckoutProvider struct {
	createCheckoutSessionFn func(ctx context.Context, req domain.CheckoutRequest) (string, error)
	createPortalSessionFn   func(ctx context.Context, customerID, returnURL string) (string, error)
}

func (m *mockCheckoutProvider) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	if m.createCheckoutSessionFn != nil {
		return m.createCheckoutSessionFn(ctx, req)
	}
	return "", errNotImplemented
}

func (m *mockCheckoutProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if m.createPortalSessionFn != nil {
		return m.createPortalSessionFn(ctx, customerID, returnURL)
	}
	return "", errNotImplemented
}
