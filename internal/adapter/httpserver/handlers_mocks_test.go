package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/app"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/billing"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/config"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	errNotImplemented = errors.New("not implemented")

	testNow    = time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)
	testUserID = uuid.MustParse("6f1c0f3e-4c1b-4e59-9d0e-2a7c55b0a001")
	testPeerID = uuid.MustParse("6f1c0f3e-4c1b-4e59-9d0e-2a7c55b0a002")
)

const testToken = "valid-token"

// --- auth ---

type mockTokenVerifier struct {
	VerifyFn func(token string) (domain.Identity, error)
}

func (m *mockTokenVerifier) Verify(token string) (domain.Identity, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(token)
	}
	if token == testToken {
		return domain.Identity{UserID: testUserID, Email: "user@example.com", Role: "authenticated"}, nil
	}
	return domain.Identity{}, domain.ErrInvalidToken
}

// --- profiles ---

type mockProfileService struct {
	MeFn             func(ctx context.Context, id domain.Identity) (*domain.Profile, error)
	GetFn            func(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	BrowseFn         func(ctx context.Context, viewer uuid.UUID, q app.BrowseQuery) (app.BrowsePage, error)
	UpdateMeFn       func(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error)
	AddFavoriteFn    func(ctx context.Context, userID, profileID uuid.UUID) error
	RemoveFavoriteFn func(ctx context.Context, userID, profileID uuid.UUID) error
	FavoritesFn      func(ctx context.Context, userID uuid.UUID) ([]domain.Profile, error)
}

func (m *mockProfileService) Me(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	if m.MeFn != nil {
		return m.MeFn(ctx, id)
	}
	return &domain.Profile{ID: id.UserID, DisplayName: "user", Tier: domain.TierFree}, nil
}

func (m *mockProfileService) Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return nil, domain.ErrProfileNotFound
}

func (m *mockProfileService) Browse(ctx context.Context, viewer uuid.UUID, q app.BrowseQuery) (app.BrowsePage, error) {
	if m.BrowseFn != nil {
		return m.BrowseFn(ctx, viewer, q)
	}
	return app.BrowsePage{}, nil
}

func (m *mockProfileService) UpdateMe(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if m.UpdateMeFn != nil {
		return m.UpdateMeFn(ctx, userID, upd)
	}
	return nil, errNotImplemented
}

func (m *mockProfileService) AddFavorite(ctx context.Context, userID, profileID uuid.UUID) error {
	if m.AddFavoriteFn != nil {
		return m.AddFavoriteFn(ctx, userID, profileID)
	}
	return nil
}

func (m *mockProfileService) RemoveFavorite(ctx context.Context, userID, profileID uuid.UUID) error {
	if m.RemoveFavoriteFn != nil {
		return m.RemoveFavoriteFn(ctx, userID, profileID)
	}
	return nil
}

func (m *mockProfileService) Favorites(ctx context.Context, userID uuid.UUID) ([]domain.Profile, error) {
	if m.FavoritesFn != nil {
		return m.FavoritesFn(ctx, userID)
	}
	return nil, nil
}

// --- messaging ---

type mockMessagingService struct {
	SendFn         func(ctx context.Context, senderID, recipientID uuid.UUID, body string) (app.MessageView, error)
	ConversationFn func(ctx context.Context, userID, peerID uuid.UUID, before time.Time, limit int) ([]app.MessageView, error)
	ThreadsFn      func(ctx context.Context, userID uuid.UUID, limit int) ([]app.ThreadView, error)
}

func (m *mockMessagingService) Send(ctx context.Context, senderID, recipientID uuid.UUID, body string) (app.MessageView, error) {
	if m.SendFn != nil {
		return m.SendFn(ctx, senderID, recipientID, body)
	}
	return app.MessageView{}, errNotImplemented
}

func (m *mockMessagingService) Conversation(ctx context.Context, userID, peerID uuid.UUID, before time.Time, limit int) ([]app.MessageView, error) {
	if m.ConversationFn != nil {
		return m.ConversationFn(ctx, userID, peerID, before, limit)
	}
	return nil, nil
}

func (m *mockMessagingService) Threads(ctx context.Context, userID uuid.UUID, limit int) ([]app.ThreadView, error) {
	if m.ThreadsFn != nil {
		return m.ThreadsFn(ctx, userID, limit)
	}
	return nil, nil
}

// --- bookings and parties ---

type mockBookingService struct {
	RequestFn func(ctx context.Context, clientID uuid.UUID, req app.BookingRequest) (*domain.Booking, error)
	ActFn     func(ctx context.Context, actor, bookingID uuid.UUID, action domain.BookingAction) (*domain.Booking, error)
	ListFn    func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error)
}

func (m *mockBookingService) Request(ctx context.Context, clientID uuid.UUID, req app.BookingRequest) (*domain.Booking, error) {
	if m.RequestFn != nil {
		return m.RequestFn(ctx, clientID, req)
	}
	return nil, errNotImplemented
}

func (m *mockBookingService) Act(ctx context.Context, actor, bookingID uuid.UUID, action domain.BookingAction) (*domain.Booking, error) {
	if m.ActFn != nil {
		return m.ActFn(ctx, actor, bookingID, action)
	}
	return nil, domain.ErrBookingNotFound
}

func (m *mockBookingService) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, userID, limit)
	}
	return nil, nil
}

type mockPartyService struct {
	CreateFn     func(ctx context.Context, hostID uuid.UUID, in app.PartyInput) (*domain.Party, error)
	UpcomingFn   func(ctx context.Context, limit int) ([]domain.Party, error)
	RSVPFn       func(ctx context.Context, partyID, userID uuid.UUID) error
	CancelRSVPFn func(ctx context.Context, partyID, userID uuid.UUID) error
}

func (m *mockPartyService) Create(ctx context.Context, hostID uuid.UUID, in app.PartyInput) (*domain.Party, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, hostID, in)
	}
	return nil, errNotImplemented
}

func (m *mockPartyService) Upcoming(ctx context.Context, limit int) ([]domain.Party, error) {
	if m.UpcomingFn != nil {
		return m.UpcomingFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockPartyService) RSVP(ctx context.Context, partyID, userID uuid.UUID) error {
	if m.RSVPFn != nil {
		return m.RSVPFn(ctx, partyID, userID)
	}
	return nil
}

func (m *mockPartyService) CancelRSVP(ctx context.Context, partyID, userID uuid.UUID) error {
	if m.CancelRSVPFn != nil {
		return m.CancelRSVPFn(ctx, partyID, userID)
	}
	return nil
}

// --- right now ---

type mockRightNowService struct {
	PostFn   func(ctx context.Context, userID uuid.UUID, in app.RightNowInput) (*domain.RightNowPost, error)
	FeedFn   func(ctx context.Context, viewer uuid.UUID, lat, lng, radiusKm float64) ([]domain.NearbyPost, error)
	DeleteFn func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockRightNowService) Post(ctx context.Context, userID uuid.UUID, in app.RightNowInput) (*domain.RightNowPost, error) {
	if m.PostFn != nil {
		return m.PostFn(ctx, userID, in)
	}
	return nil, errNotImplemented
}

func (m *mockRightNowService) Feed(ctx context.Context, viewer uuid.UUID, lat, lng, radiusKm float64) ([]domain.NearbyPost, error) {
	if m.FeedFn != nil {
		return m.FeedFn(ctx, viewer, lat, lng, radiusKm)
	}
	return nil, nil
}

func (m *mockRightNowService) Delete(ctx context.Context, userID uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, userID)
	}
	return nil
}

// --- photos ---

type mockPhotoService struct {
	RequestUploadFn func(ctx context.Context, profileID uuid.UUID, contentType string) (*app.PhotoUpload, error)
	ListFn          func(ctx context.Context, profileID uuid.UUID) ([]app.PhotoView, error)
	DeleteFn        func(ctx context.Context, profileID, photoID uuid.UUID) error
}

func (m *mockPhotoService) RequestUpload(ctx context.Context, profileID uuid.UUID, contentType string) (*app.PhotoUpload, error) {
	if m.RequestUploadFn != nil {
		return m.RequestUploadFn(ctx, profileID, contentType)
	}
	return nil, errNotImplemented
}

func (m *mockPhotoService) List(ctx context.Context, profileID uuid.UUID) ([]app.PhotoView, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, profileID)
	}
	return nil, nil
}

func (m *mockPhotoService) Delete(ctx context.Context, profileID, photoID uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, profileID, photoID)
	}
	return nil
}

// --- billing ---

type mockBillingService struct {
	CheckoutFn     func(ctx context.Context, id domain.Identity, tier domain.Tier) (string, error)
	PortalFn       func(ctx context.Context, userID uuid.UUID) (string, error)
	SubscriptionFn func(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
}

func (m *mockBillingService) Checkout(ctx context.Context, id domain.Identity, tier domain.Tier) (string, error) {
	if m.CheckoutFn != nil {
		return m.CheckoutFn(ctx, id, tier)
	}
	return "", errNotImplemented
}

func (m *mockBillingService) Portal(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.PortalFn != nil {
		return m.PortalFn(ctx, userID)
	}
	return "", errNotImplemented
}

func (m *mockBillingService) Subscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	if m.SubscriptionFn != nil {
		return m.SubscriptionFn(ctx, userID)
	}
	return nil, domain.ErrSubscriptionNotFound
}

type mockWebhookService struct {
	HandleFn func(ctx context.Context, payload []byte, signatureHeader string) (billing.Result, error)
}

func (m *mockWebhookService) Handle(ctx context.Context, payload []byte, signatureHeader string) (billing.Result, error) {
	if m.HandleFn != nil {
		return m.HandleFn(ctx, payload, signatureHeader)
	}
	return billing.Result{}, nil
}

// --- realtime ---

type mockRealtime struct {
	ServeFn func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error
}

func (m *mockRealtime) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	if m.ServeFn != nil {
		return m.ServeFn(w, r, userID)
	}
	return errNotImplemented
}

// --- harness ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:         "development",
		Port:           "0",
		AppBaseURL:     "http://localhost:3000",
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		SessionMaxAge:  24 * time.Hour,
	}
}

// newTestServer fills every service not provided in svc with a default mock.
// Photos stays nil unless set, matching a deployment without object storage.
func newTestServer(t *testing.T, svc Services, opts Options) *Server {
	t.Helper()
	if svc.Profiles == nil {
		svc.Profiles = &mockProfileService{}
	}
	if svc.Messaging == nil {
		svc.Messaging = &mockMessagingService{}
	}
	if svc.Bookings == nil {
		svc.Bookings = &mockBookingService{}
	}
	if svc.Parties == nil {
		svc.Parties = &mockPartyService{}
	}
	if svc.RightNow == nil {
		svc.RightNow = &mockRightNowService{}
	}
	if svc.Billing == nil {
		svc.Billing = &mockBillingService{}
	}
	if svc.Webhooks == nil {
		svc.Webhooks = &mockWebhookService{}
	}
	if svc.Realtime == nil {
		svc.Realtime = &mockRealtime{}
	}
	if svc.Tokens == nil {
		svc.Tokens = &mockTokenVerifier{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewFakeClockAt(testNow)
	}
	return NewServer(testConfig(), svc, opts)
}

// apiRequest sends a bearer-authenticated request, which skips CSRF.
func apiRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}
