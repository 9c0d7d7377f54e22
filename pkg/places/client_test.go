package places

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuota struct {
	calls int
	limit int
	err   error
}

func (f *fakeQuota) CheckAndIncrementUsage() error {
	if f.err != nil {
		return f.err
	}
	if f.limit > 0 && f.calls >= f.limit {
		return ErrQuotaExceeded
	}
	f.calls++
	return nil
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T, handler http.HandlerFunc, quota QuotaGuard, mutate ...func(*Config)) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		DailyLimit:   100,
		SearchRadius: 5000,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	client, err := NewClient(cfg, quota)
	require.NoError(t, err)
	return client
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	client, err := NewClient(Config{}, nil)
	assert.Nil(t, client)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k"}, nil)
	require.NoError(t, err)

	cfg := client.GetConfig()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 45000, cfg.DailyLimit)
	assert.Equal(t, 5000, cfg.SearchRadius)
	assert.Len(t, cfg.SearchPoints, len(KatySearchPoints))
}

func TestFetchNearbyRestaurants_FollowsPageTokens(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		atomic.AddInt32(&calls, 1)

		switch r.URL.Query().Get("pagetoken") {
		case "":
			assert.Equal(t, "restaurant", r.URL.Query().Get("type"))
			assert.Equal(t, "29.7858,-95.8245", r.URL.Query().Get("location"))
			writeJSON(t, w, map[string]interface{}{
				"status":          "OK",
				"results":         []map[string]interface{}{{"place_id": "a", "name": "A"}},
				"next_page_token": "page2",
			})
		case "page2":
			writeJSON(t, w, map[string]interface{}{
				"status":  "OK",
				"results": []map[string]interface{}{{"place_id": "b", "name": "B"}},
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pagetoken"))
		}
	}, nil)

	results, err := client.FetchNearbyRestaurants(context.Background(), LatLng{Lat: 29.7858, Lng: -95.8245}, 5000)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].PlaceID)
	assert.Equal(t, "b", results[1].PlaceID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, client.RequestCount())
}

func TestFetchNearbyRestaurants_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]interface{}{
			"status":        "REQUEST_DENIED",
			"error_message": "This API project is not authorized to use this API.",
		})
	}, nil)

	_, err := client.FetchNearbyRestaurants(context.Background(), LatLng{}, 1000)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, StatusRequestDenied, statusErr.Status)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestFetchNearbyRestaurants_HTTPFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	_, err := client.FetchNearbyRestaurants(context.Background(), LatLng{}, 1000)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestFetchNearbyRestaurants_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}, nil)

	_, err := client.FetchNearbyRestaurants(context.Background(), LatLng{}, 1000)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestFetchAllKatyRestaurants_DeduplicatesAcrossPoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("location") {
		case "1,1":
			writeJSON(t, w, map[string]interface{}{
				"status": "OK",
				"results": []map[string]interface{}{
					{"place_id": "ChIJ123", "name": "Shared"},
					{"place_id": "ChIJ1", "name": "One"},
				},
			})
		case "2,2":
			writeJSON(t, w, map[string]interface{}{
				"status": "OK",
				"results": []map[string]interface{}{
					{"place_id": "ChIJ123", "name": "Shared"},
					{"place_id": "ChIJ2", "name": "Two"},
				},
			})
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}, nil, func(cfg *Config) {
		cfg.SearchPoints = []SearchPoint{
			{Name: "first", Location: LatLng{Lat: 1, Lng: 1}},
			{Name: "broken", Location: LatLng{Lat: 3, Lng: 3}},
			{Name: "second", Location: LatLng{Lat: 2, Lng: 2}},
		}
	})

	results, err := client.FetchAllKatyRestaurants(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(results))
	for _, p := range results {
		ids = append(ids, p.PlaceID)
	}
	assert.Equal(t, []string{"ChIJ123", "ChIJ1", "ChIJ2"}, ids)
}

func TestFetchAllKatyRestaurants_StopsOnQuota(t *testing.T) {
	quota := &fakeQuota{limit: 1}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]interface{}{
			"status":  "OK",
			"results": []map[string]interface{}{{"place_id": r.URL.Query().Get("location"), "name": "X"}},
		})
	}, quota, func(cfg *Config) {
		cfg.SearchPoints = []SearchPoint{
			{Name: "first", Location: LatLng{Lat: 1, Lng: 1}},
			{Name: "second", Location: LatLng{Lat: 2, Lng: 2}},
		}
	})

	results, err := client.FetchAllKatyRestaurants(context.Background())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, quota.calls)
}

func TestFetchPlaceDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		assert.Equal(t, "ChIJabc", r.URL.Query().Get("place_id"))
		fields := r.URL.Query().Get("fields")
		for _, f := range []string{"name", "opening_hours", "price_level", "editorial_summary", "business_status"} {
			assert.Contains(t, fields, f)
		}
		writeJSON(t, w, map[string]interface{}{
			"status": "OK",
			"result": map[string]interface{}{
				"name":               "Taqueria Arandas",
				"formatted_address":  "123 Main St, Katy, TX 77494, USA",
				"price_level":        1,
				"rating":             4.6,
				"user_ratings_total": 250,
				"business_status":    "OPERATIONAL",
			},
		})
	}, nil)

	place, err := client.FetchPlaceDetails(context.Background(), "ChIJabc")
	require.NoError(t, err)
	assert.Equal(t, "ChIJabc", place.PlaceID)
	assert.Equal(t, "Taqueria Arandas", place.Name)
	require.NotNil(t, place.PriceLevel)
	assert.Equal(t, 1, *place.PriceLevel)
	assert.Equal(t, 250, place.UserRatingsTotal)
}

func TestFetchPlaceDetails_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]interface{}{"status": "NOT_FOUND"})
	}, nil)

	place, err := client.FetchPlaceDetails(context.Background(), "gone")
	assert.Nil(t, place)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, StatusNotFound, statusErr.Status)
}

func TestFetchDetailedRestaurantData_KeepsOriginalOnFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, map[string]interface{}{
			"status": "OK",
			"result": map[string]interface{}{
				"place_id": r.URL.Query().Get("place_id"),
				"name":     "Detailed",
				"website":  "https://example.com",
			},
		})
	}, nil)

	candidates := []Place{
		{PlaceID: "good", Name: "Good"},
		{PlaceID: "bad", Name: "Bad"},
	}

	var progress []string
	results, err := client.FetchDetailedRestaurantData(context.Background(), candidates, func(current, total int, name string) {
		assert.Equal(t, 2, total)
		progress = append(progress, name)
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://example.com", results[0].Website)
	assert.Equal(t, "Bad", results[1].Name)
	assert.Empty(t, results[1].Website)
	assert.Equal(t, []string{"Good", "Bad"}, progress)
}

func TestQuota_InMemoryLimit(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(t, w, map[string]interface{}{"status": "ZERO_RESULTS"})
	}, nil, func(cfg *Config) {
		cfg.DailyLimit = 2
	})

	ctx := context.Background()
	_, err := client.FetchNearbyRestaurants(ctx, LatLng{}, 100)
	require.NoError(t, err)
	_, err = client.FetchNearbyRestaurants(ctx, LatLng{}, 100)
	require.NoError(t, err)

	_, err = client.FetchNearbyRestaurants(ctx, LatLng{}, 100)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQuota_RollingWindowResets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]interface{}{"status": "ZERO_RESULTS"})
	}, nil, func(cfg *Config) {
		cfg.DailyLimit = 1
	})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	ctx := context.Background()
	_, err := client.FetchNearbyRestaurants(ctx, LatLng{}, 100)
	require.NoError(t, err)
	_, err = client.FetchNearbyRestaurants(ctx, LatLng{}, 100)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	now = now.Add(24 * time.Hour)
	_, err = client.FetchNearbyRestaurants(ctx, LatLng{}, 100)
	assert.NoError(t, err)
}

func TestQuota_PersistedGuardRejectsWithoutCalling(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, &fakeQuota{limit: 0, err: ErrQuotaExceeded})

	_, err := client.FetchPlaceDetails(context.Background(), "x")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, client.RequestCount())
}

func TestTestConnection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000", r.URL.Query().Get("radius"))
		writeJSON(t, w, map[string]interface{}{
			"status":  "OK",
			"results": []map[string]interface{}{{"place_id": "a"}, {"place_id": "b"}},
		})
	}, nil)

	count, err := client.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetPhotoURL(t *testing.T) {
	client, err := NewClient(Config{APIKey: "secret"}, nil)
	require.NoError(t, err)

	photoURL := client.GetPhotoURL("ref123", 800, 600)
	assert.True(t, strings.HasPrefix(photoURL, DefaultBaseURL+"/photo?"))
	assert.Contains(t, photoURL, "maxwidth=800")
	assert.Contains(t, photoURL, "maxheight=600")
	assert.Contains(t, photoURL, "photo_reference=ref123")
	assert.Contains(t, photoURL, "key=secret")
}

func TestRemediation(t *testing.T) {
	assert.Len(t, Remediation(StatusRequestDenied), 3)
	assert.NotEmpty(t, Remediation(StatusOverQueryLimit))
	assert.Nil(t, Remediation("UNKNOWN_ERROR"))
}
