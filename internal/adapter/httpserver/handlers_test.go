package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/realtime"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/app"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertErrorType(t *testing.T, rec *httptest.ResponseRecorder, status int, typ apperrors.ErrorType) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, typ, decode[apperrors.ErrorResponse](t, rec).Type)
}

// --- auth ---

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, Services{}, Options{})

	t.Run("no credentials", func(t *testing.T) {
		rec := get(t, srv, "/api/me")
		assertErrorType(t, rec, http.StatusUnauthorized, apperrors.TypeUnauthorized)
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assertErrorType(t, rec, http.StatusUnauthorized, apperrors.TypeUnauthorized)
	})

	t.Run("query token only on realtime", func(t *testing.T) {
		rec := get(t, srv, "/api/me?access_token="+testToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("cookie token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, cookieRequest(http.MethodGet, "/api/me"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			srv := newTestServer(t, Services{}, Options{})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			c := srv.echo.NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, bearerToken(c))
		})
	}
}

// --- profiles ---

func TestGetMeShowsPrivateSettings(t *testing.T) {
	srv := newTestServer(t, Services{Profiles: &mockProfileService{
		MeFn: func(_ context.Context, id domain.Identity) (*domain.Profile, error) {
			assert.Equal(t, "user@example.com", id.Email)
			return &domain.Profile{
				ID: id.UserID, DisplayName: "Max", Tier: domain.TierKing,
				AutoReplyEnabled: true, AutoReplyPrompt: "be brief",
				LastSeenAt: testNow.Add(-time.Minute),
			}, nil
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodGet, "/api/me", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Max", body["display_name"])
	assert.Equal(t, "king", body["tier"])
	assert.Equal(t, true, body["online"])
	assert.Equal(t, true, body["auto_reply_enabled"])
	assert.Equal(t, "be brief", body["auto_reply_prompt"])
}

func TestGetProfileHidesPrivateSettingsFromOthers(t *testing.T) {
	srv := newTestServer(t, Services{Profiles: &mockProfileService{
		GetFn: func(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
			return &domain.Profile{ID: id, DisplayName: "Peer", AutoReplyEnabled: true, AutoReplyPrompt: "secret"}, nil
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodGet, "/api/profiles/"+testPeerID.String(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.NotContains(t, body, "auto_reply_prompt")
	assert.NotContains(t, body, "auto_reply_enabled")
	assert.Equal(t, false, body["online"])
}

func TestGetProfileErrors(t *testing.T) {
	srv := newTestServer(t, Services{}, Options{})

	rec := apiRequest(t, srv, http.MethodGet, "/api/profiles/not-a-uuid", "")
	assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)

	rec = apiRequest(t, srv, http.MethodGet, "/api/profiles/"+testPeerID.String(), "")
	assertErrorType(t, rec, http.StatusNotFound, apperrors.TypeNotFound)
}

func TestBrowseProfilesPassesQuery(t *testing.T) {
	var got app.BrowseQuery
	srv := newTestServer(t, Services{Profiles: &mockProfileService{
		BrowseFn: func(_ context.Context, viewer uuid.UUID, q app.BrowseQuery) (app.BrowsePage, error) {
			assert.Equal(t, testUserID, viewer)
			got = q
			return app.BrowsePage{
				Profiles:   []domain.Profile{{ID: testPeerID, DisplayName: "Peer"}},
				NextCursor: "next",
			}, nil
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodGet, "/api/profiles?city=Berlin&online=true&min_age=21&max_age=40&cursor=abc&limit=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, app.BrowseQuery{City: "Berlin", OnlineOnly: true, MinAge: 21, MaxAge: 40, Cursor: "abc", Limit: 10}, got)
	body := decode[struct {
		Profiles   []map[string]any `json:"profiles"`
		NextCursor string           `json:"next_cursor"`
	}](t, rec)
	assert.Len(t, body.Profiles, 1)
	assert.Equal(t, "next", body.NextCursor)
}

func TestUpdateMe(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		var got domain.ProfileUpdate
		srv := newTestServer(t, Services{Profiles: &mockProfileService{
			UpdateMeFn: func(_ context.Context, id uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
				got = upd
				return &domain.Profile{ID: id, City: *upd.City}, nil
			},
		}}, Options{})

		rec := apiRequest(t, srv, http.MethodPatch, "/api/me", `{"city":"Berlin"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got.City)
		assert.Equal(t, "Berlin", *got.City)
		assert.Nil(t, got.DisplayName)
		assert.Nil(t, got.Age)
	})

	t.Run("under age", func(t *testing.T) {
		srv := newTestServer(t, Services{}, Options{})
		rec := apiRequest(t, srv, http.MethodPatch, "/api/me", `{"age":17}`)

		assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)
		assert.Equal(t, "age is out of range", decode[apperrors.ErrorResponse](t, rec).Error)
	})

	t.Run("malformed json", func(t *testing.T) {
		srv := newTestServer(t, Services{}, Options{})
		rec := apiRequest(t, srv, http.MethodPatch, "/api/me", `{"age":`)
		assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)
	})
}

func TestFavorites(t *testing.T) {
	var added, removed uuid.UUID
	srv := newTestServer(t, Services{Profiles: &mockProfileService{
		AddFavoriteFn: func(_ context.Context, _, id uuid.UUID) error {
			added = id
			return nil
		},
		RemoveFavoriteFn: func(_ context.Context, _, id uuid.UUID) error {
			removed = id
			return nil
		},
		FavoritesFn: func(context.Context, uuid.UUID) ([]domain.Profile, error) {
			return []domain.Profile{{ID: testPeerID}}, nil
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodPost, "/api/favorites/"+testPeerID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testPeerID, added)

	rec = apiRequest(t, srv, http.MethodDelete, "/api/favorites/"+testPeerID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testPeerID, removed)

	rec = apiRequest(t, srv, http.MethodGet, "/api/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]any](t, rec)["profiles"], 1)
}

// --- messaging ---

func TestSendMessage(t *testing.T) {
	srv := newTestServer(t, Services{Messaging: &mockMessagingService{
		SendFn: func(_ context.Context, from, to uuid.UUID, body string) (app.MessageView, error) {
			assert.Equal(t, testUserID, from)
			assert.Equal(t, testPeerID, to)
			return app.MessageView{ID: uuid.New(), SenderID: from, RecipientID: to, Body: body, CreatedAt: testNow}, nil
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodPost, "/api/conversations/"+testPeerID.String()+"/messages", `{"body":"hi"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "hi", decode[app.MessageView](t, rec).Body)
}

func TestSendMessageRequiresBody(t *testing.T) {
	srv := newTestServer(t, Services{}, Options{})

	rec := apiRequest(t, srv, http.MethodPost, "/api/conversations/"+testPeerID.String()+"/messages", `{}`)

	assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)
	assert.Equal(t, "body is required", decode[apperrors.ErrorResponse](t, rec).Error)
}

func TestListMessagesBefore(t *testing.T) {
	var gotBefore time.Time
	var gotLimit int
	srv := newTestServer(t, Services{Messaging: &mockMessagingService{
		ConversationFn: func(_ context.Context, _, _ uuid.UUID, before time.Time, limit int) ([]app.MessageView, error) {
			gotBefore, gotLimit = before, limit
			return []app.MessageView{}, nil
		},
	}}, Options{})

	target := "/api/conversations/" + testPeerID.String() + "/messages?limit=20&before=2026-06-01T19:00:00Z"
	rec := apiRequest(t, srv, http.MethodGet, target, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotBefore.Equal(testNow.Add(-time.Hour)))
	assert.Equal(t, 20, gotLimit)

	rec = apiRequest(t, srv, http.MethodGet, "/api/conversations/"+testPeerID.String()+"/messages?before=yesterday", "")
	assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)
}

func TestListThreads(t *testing.T) {
	srv := newTestServer(t, Services{Messaging: &mockMessagingService{
		ThreadsFn: func(context.Context, uuid.UUID, int) ([]app.ThreadView, error) {
			return []app.ThreadView{{PeerID: testPeerID, UnreadCount: 2}}, nil
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodGet, "/api/conversations", "")

	require.Equal(t, http.StatusOK, rec.Code)
	threads := decode[map[string][]app.ThreadView](t, rec)["threads"]
	require.Len(t, threads, 1)
	assert.Equal(t, 2, threads[0].UnreadCount)
}

// --- bookings and parties ---

func TestRequestBooking(t *testing.T) {
	startsAt := testNow.Add(24 * time.Hour)
	srv := newTestServer(t, Services{Bookings: &mockBookingService{
		RequestFn: func(_ context.Context, client uuid.UUID, req app.BookingRequest) (*domain.Booking, error) {
			assert.Equal(t, testPeerID, req.ProviderID)
			assert.True(t, req.StartsAt.Equal(startsAt))
			assert.Equal(t, 60, req.DurationMinutes)
			return &domain.Booking{ID: uuid.New(), ClientID: client, ProviderID: req.ProviderID, Status: domain.BookingPending}, nil
		},
	}}, Options{})

	body := fmt.Sprintf(`{"provider_id":%q,"starts_at":%q,"duration_minutes":60}`, testPeerID, startsAt.Format(time.RFC3339))
	rec := apiRequest(t, srv, http.MethodPost, "/api/bookings", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", decode[map[string]any](t, rec)["status"])
}

func TestBookingAction(t *testing.T) {
	bookingID := uuid.New()
	target := "/api/bookings/" + bookingID.String()

	t.Run("accept", func(t *testing.T) {
		srv := newTestServer(t, Services{Bookings: &mockBookingService{
			ActFn: func(_ context.Context, actor, id uuid.UUID, action domain.BookingAction) (*domain.Booking, error) {
				assert.Equal(t, testUserID, actor)
				assert.Equal(t, bookingID, id)
				assert.Equal(t, domain.BookingAccept, action)
				return &domain.Booking{ID: id, Status: domain.BookingAccepted}, nil
			},
		}}, Options{})

		rec := apiRequest(t, srv, http.MethodPatch, target, `{"action":"accept"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "accepted", decode[map[string]any](t, rec)["status"])
	})

	t.Run("unknown action", func(t *testing.T) {
		srv := newTestServer(t, Services{}, Options{})
		rec := apiRequest(t, srv, http.MethodPatch, target, `{"action":"complete"}`)
		assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)
	})

	t.Run("transition refused", func(t *testing.T) {
		srv := newTestServer(t, Services{Bookings: &mockBookingService{
			ActFn: func(context.Context, uuid.UUID, uuid.UUID, domain.BookingAction) (*domain.Booking, error) {
				return nil, fmt.Errorf("act: %w", domain.ErrBookingTransition)
			},
		}}, Options{})
		rec := apiRequest(t, srv, http.MethodPatch, target, `{"action":"decline"}`)
		assertErrorType(t, rec, http.StatusConflict, apperrors.TypeConflict)
	})
}

func TestRSVPFullParty(t *testing.T) {
	srv := newTestServer(t, Services{Parties: &mockPartyService{
		RSVPFn: func(context.Context, uuid.UUID, uuid.UUID) error { return domain.ErrPartyFull },
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodPost, "/api/parties/"+uuid.NewString()+"/rsvp", "")

	assertErrorType(t, rec, http.StatusConflict, apperrors.TypeConflict)
	assert.Equal(t, "party is full", decode[apperrors.ErrorResponse](t, rec).Error)
}

// --- right now ---

func TestRightNowFeed(t *testing.T) {
	var gotLat, gotLng, gotRadius float64
	srv := newTestServer(t, Services{RightNow: &mockRightNowService{
		FeedFn: func(_ context.Context, _ uuid.UUID, lat, lng, radius float64) ([]domain.NearbyPost, error) {
			gotLat, gotLng, gotRadius = lat, lng, radius
			return []domain.NearbyPost{{RightNowPost: domain.RightNowPost{UserID: testPeerID, Message: "drinks"}, DistanceKm: 1.5}}, nil
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodGet, "/api/right-now?lat=51.5&lng=-0.12&radius_km=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 51.5, gotLat, 1e-9)
	assert.InDelta(t, -0.12, gotLng, 1e-9)
	assert.InDelta(t, 5.0, gotRadius, 1e-9)
	posts := decode[map[string][]map[string]any](t, rec)["posts"]
	require.Len(t, posts, 1)
	assert.InDelta(t, 1.5, posts[0]["distance_km"], 1e-9)
}

func TestRightNowFeedValidation(t *testing.T) {
	srv := newTestServer(t, Services{}, Options{})

	rec := apiRequest(t, srv, http.MethodGet, "/api/right-now?lng=0", "")
	assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)

	rec = apiRequest(t, srv, http.MethodGet, "/api/right-now?lat=north&lng=0", "")
	assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)
}

func TestPostRightNow(t *testing.T) {
	t.Run("zero coordinates are valid", func(t *testing.T) {
		var got app.RightNowInput
		srv := newTestServer(t, Services{RightNow: &mockRightNowService{
			PostFn: func(_ context.Context, id uuid.UUID, in app.RightNowInput) (*domain.RightNowPost, error) {
				got = in
				return &domain.RightNowPost{UserID: id, Lat: in.Lat, Lng: in.Lng}, nil
			},
		}}, Options{})

		rec := apiRequest(t, srv, http.MethodPost, "/api/right-now", `{"lat":0,"lng":0,"ttl_minutes":30}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 30*time.Minute, got.TTL)
	})

	t.Run("missing coordinates", func(t *testing.T) {
		srv := newTestServer(t, Services{}, Options{})
		rec := apiRequest(t, srv, http.MethodPost, "/api/right-now", `{"message":"hi"}`)
		assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)
	})

	t.Run("premium required", func(t *testing.T) {
		srv := newTestServer(t, Services{RightNow: &mockRightNowService{
			PostFn: func(context.Context, uuid.UUID, app.RightNowInput) (*domain.RightNowPost, error) {
				return nil, domain.ErrInsufficientTier
			},
		}}, Options{})
		rec := apiRequest(t, srv, http.MethodPost, "/api/right-now", `{"lat":1,"lng":1}`)
		assertErrorType(t, rec, http.StatusForbidden, apperrors.TypeForbidden)
	})
}

// --- photos ---

func TestPhotosUnavailableWithoutStorage(t *testing.T) {
	srv := newTestServer(t, Services{}, Options{})

	rec := apiRequest(t, srv, http.MethodPost, "/api/photos", `{"content_type":"image/png"}`)

	assertErrorType(t, rec, http.StatusServiceUnavailable, apperrors.TypeUnavailable)
}

func TestRequestPhotoUpload(t *testing.T) {
	photoID := uuid.New()
	srv := newTestServer(t, Services{Photos: &mockPhotoService{
		RequestUploadFn: func(_ context.Context, id uuid.UUID, ct string) (*app.PhotoUpload, error) {
			return &app.PhotoUpload{
				Photo:     domain.Photo{ID: photoID, ProfileID: id, ContentType: ct},
				UploadURL: "https://s3.test/put",
			}, nil
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodPost, "/api/photos", `{"content_type":"image/png"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, photoID.String(), body["id"])
	assert.Equal(t, "https://s3.test/put", body["upload_url"])

	rec = apiRequest(t, srv, http.MethodPost, "/api/photos", `{"content_type":"image/gif"}`)
	assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)
}

// --- billing ---

func TestCheckout(t *testing.T) {
	srv := newTestServer(t, Services{Billing: &mockBillingService{
		CheckoutFn: func(_ context.Context, id domain.Identity, tier domain.Tier) (string, error) {
			assert.Equal(t, testUserID, id.UserID)
			assert.Equal(t, domain.TierKing, tier)
			return "https://checkout.stripe.test/session", nil
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodPost, "/api/billing/checkout", `{"tier":"king"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://checkout.stripe.test/session", decode[map[string]string](t, rec)["url"])

	rec = apiRequest(t, srv, http.MethodPost, "/api/billing/checkout", `{"tier":"free"}`)
	assertErrorType(t, rec, http.StatusBadRequest, apperrors.TypeValidation)
}

func TestCheckoutConflict(t *testing.T) {
	srv := newTestServer(t, Services{Billing: &mockBillingService{
		CheckoutFn: func(context.Context, domain.Identity, domain.Tier) (string, error) {
			return "", apperrors.ConflictError("already subscribed to this tier")
		},
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodPost, "/api/billing/checkout", `{"tier":"premium"}`)

	assertErrorType(t, rec, http.StatusConflict, apperrors.TypeConflict)
}

func TestSubscription(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		srv := newTestServer(t, Services{}, Options{})
		rec := apiRequest(t, srv, http.MethodGet, "/api/billing/subscription", "")
		assertErrorType(t, rec, http.StatusNotFound, apperrors.TypeNotFound)
	})

	t.Run("active", func(t *testing.T) {
		end := testNow.Add(30 * 24 * time.Hour)
		srv := newTestServer(t, Services{Billing: &mockBillingService{
			SubscriptionFn: func(_ context.Context, id uuid.UUID) (*domain.Subscription, error) {
				return &domain.Subscription{UserID: id, StripeCustomerID: "cus_1", Tier: domain.TierPremium, Status: domain.StatusActive, CurrentPeriodEnd: &end}, nil
			},
		}}, Options{})
		rec := apiRequest(t, srv, http.MethodGet, "/api/billing/subscription", "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, "premium", body["tier"])
		assert.Equal(t, "active", body["status"])
		assert.NotContains(t, rec.Body.String(), "cus_1")
	})
}

func TestPortalWithoutCustomer(t *testing.T) {
	srv := newTestServer(t, Services{Billing: &mockBillingService{
		PortalFn: func(context.Context, uuid.UUID) (string, error) { return "", domain.ErrNoBillingCustomer },
	}}, Options{})

	rec := apiRequest(t, srv, http.MethodPost, "/api/billing/portal", "")

	assertErrorType(t, rec, http.StatusNotFound, apperrors.TypeNotFound)
}

// --- realtime ---

func TestRealtimeUpgrade(t *testing.T) {
	tests := []struct {
		name       string
		serveErr   error
		wantStatus int
	}{
		{"connection cap", realtime.ErrTooManyConnections, http.StatusTooManyRequests},
		{"hub closed", realtime.ErrHubClosed, http.StatusServiceUnavailable},
		{"not a websocket", fmt.Errorf("upgrade: %w", errNotImplemented), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser uuid.UUID
			srv := newTestServer(t, Services{Realtime: &mockRealtime{
				ServeFn: func(_ http.ResponseWriter, _ *http.Request, id uuid.UUID) error {
					gotUser = id
					return tt.serveErr
				},
			}}, Options{})

			rec := get(t, srv, "/api/realtime?access_token="+testToken)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, testUserID, gotUser)
		})
	}
}

func TestRealtimeRequiresAuth(t *testing.T) {
	srv := newTestServer(t, Services{}, Options{})

	rec := get(t, srv, "/api/realtime")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
