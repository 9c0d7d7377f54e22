package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ekaty/ekaty-backend/pkg/logger"
	"golang.org/x/time/rate"
)

// detailFields is the fixed field mask for place details.
var detailFields = []string{
	"place_id",
	"name",
	"formatted_address",
	"vicinity",
	"geometry",
	"formatted_phone_number",
	"website",
	"opening_hours",
	"price_level",
	"rating",
	"user_ratings_total",
	"reviews",
	"photos",
	"types",
	"business_status",
	"url",
	"editorial_summary",
}

const quotaWindow = 24 * time.Hour

// QuotaGuard is the persisted daily request counter consulted before every call.
type QuotaGuard interface {
	CheckAndIncrementUsage() error
}

// Client talks to the Google Places web service
type Client struct {
	config     Config
	httpClient *http.Client
	quota      QuotaGuard

	detailLimiter *rate.Limiter
	pointLimiter  *rate.Limiter

	mu           sync.Mutex
	windowStart  time.Time
	requestCount int

	now func() time.Time
}

// NewClient creates a places client. A nil quota disables persisted accounting.
func NewClient(config Config, quota QuotaGuard) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.applyDefaults()

	return &Client{
		config:        config,
		httpClient:    &http.Client{Timeout: config.Timeout},
		quota:         quota,
		detailLimiter: newLimiter(config.DetailDelay),
		pointLimiter:  newLimiter(config.PointDelay),
		now:           time.Now,
	}, nil
}

func newLimiter(every time.Duration) *rate.Limiter {
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(every), 1)
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// RequestCount returns requests issued in the current in-memory window.
func (c *Client) RequestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollWindow()
	return c.requestCount
}

func (c *Client) rollWindow() {
	now := c.now()
	if c.windowStart.IsZero() || now.Sub(c.windowStart) >= quotaWindow {
		c.windowStart = now
		c.requestCount = 0
	}
}

// reserveRequest checks the in-memory window first, then the persisted guard.
func (c *Client) reserveRequest() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollWindow()
	if c.requestCount >= c.config.DailyLimit {
		return fmt.Errorf("%w: %d requests in the last 24h", ErrQuotaExceeded, c.requestCount)
	}

	if c.quota != nil {
		if err := c.quota.CheckAndIncrementUsage(); err != nil {
			return err
		}
	}

	c.requestCount++
	return nil
}

// FetchNearbyRestaurants runs a nearby search and follows every next_page_token.
// On error the pages fetched so far are returned with it.
func (c *Client) FetchNearbyRestaurants(ctx context.Context, location LatLng, radius int) ([]Place, error) {
	params := url.Values{}
	params.Set("location", formatLatLng(location))
	params.Set("radius", strconv.Itoa(radius))
	params.Set("type", "restaurant")

	var results []Place
	for page := 1; ; page++ {
		var resp nearbySearchResponse
		if err := c.doGet(ctx, "nearbysearch", params, &resp); err != nil {
			logger.Error("Nearby search request failed", err, map[string]interface{}{
				"location": formatLatLng(location),
				"page":     page,
			})
			return results, err
		}
		if resp.Status != StatusOK && resp.Status != StatusZeroResults {
			err := &StatusError{Status: resp.Status, Message: resp.ErrorMessage}
			logger.Error("Nearby search returned error status", err, map[string]interface{}{
				"location": formatLatLng(location),
				"page":     page,
			})
			return results, err
		}

		results = append(results, resp.Results...)
		if resp.NextPageToken == "" {
			return results, nil
		}

		// next_page_token is not valid until the provider has had time to issue it
		if err := sleepContext(ctx, c.config.PageTokenDelay); err != nil {
			return results, err
		}
		params = url.Values{}
		params.Set("pagetoken", resp.NextPageToken)
	}
}

// FetchAllKatyRestaurants searches every configured point and merges results by place id.
// A failing point is logged and skipped; quota exhaustion and cancellation stop the
// run and return what was collected.
func (c *Client) FetchAllKatyRestaurants(ctx context.Context) ([]Place, error) {
	seen := make(map[string]struct{})
	var merged []Place

	merge := func(found []Place) int {
		added := 0
		for _, p := range found {
			if p.PlaceID == "" {
				continue
			}
			if _, ok := seen[p.PlaceID]; ok {
				continue
			}
			seen[p.PlaceID] = struct{}{}
			merged = append(merged, p)
			added++
		}
		return added
	}

	for i, point := range c.config.SearchPoints {
		if err := c.pointLimiter.Wait(ctx); err != nil {
			return merged, err
		}

		found, err := c.FetchNearbyRestaurants(ctx, point.Location, c.config.SearchRadius)
		added := merge(found)
		if err != nil {
			if errors.Is(err, ErrQuotaExceeded) || ctx.Err() != nil {
				return merged, err
			}
			logger.Warn("Search point failed, continuing", map[string]interface{}{
				"point": point.Name,
				"error": err.Error(),
			})
			continue
		}

		logger.Info("Search point complete", map[string]interface{}{
			"point": point.Name,
			"index": i + 1,
			"of":    len(c.config.SearchPoints),
			"found": len(found),
			"new":   added,
			"total": len(merged),
		})
	}

	return merged, nil
}

// FetchPlaceDetails requests the fixed detail field set for one place.
func (c *Client) FetchPlaceDetails(ctx context.Context, placeID string) (*Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", strings.Join(detailFields, ","))

	var resp detailsResponse
	if err := c.doGet(ctx, "details", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != StatusOK {
		return nil, &StatusError{Status: resp.Status, Message: resp.ErrorMessage}
	}

	place := resp.Result
	if place.PlaceID == "" {
		place.PlaceID = placeID
	}
	return &place, nil
}

// FetchDetailedRestaurantData replaces each candidate with its detail record.
// A candidate whose detail fetch fails is kept as is. Quota exhaustion stops
// fetching; the remaining candidates are returned undetailed alongside the error.
func (c *Client) FetchDetailedRestaurantData(ctx context.Context, candidates []Place, onProgress ProgressFunc) ([]Place, error) {
	out := make([]Place, 0, len(candidates))
	for i, candidate := range candidates {
		if err := c.detailLimiter.Wait(ctx); err != nil {
			return append(out, candidates[i:]...), err
		}

		detail, err := c.FetchPlaceDetails(ctx, candidate.PlaceID)
		if err != nil {
			if errors.Is(err, ErrQuotaExceeded) || ctx.Err() != nil {
				return append(out, candidates[i:]...), err
			}
			logger.Warn("Place details failed, keeping search result", map[string]interface{}{
				"place_id": candidate.PlaceID,
				"name":     candidate.Name,
				"error":    err.Error(),
			})
			out = append(out, candidate)
		} else {
			out = append(out, *detail)
		}

		if onProgress != nil {
			onProgress(i+1, len(candidates), candidate.Name)
		}
	}
	return out, nil
}

// TestConnection issues one nearby search at the first search point and
// returns the number of results on the first page.
func (c *Client) TestConnection(ctx context.Context) (int, error) {
	point := c.config.SearchPoints[0]
	params := url.Values{}
	params.Set("location", formatLatLng(point.Location))
	params.Set("radius", "1000")
	params.Set("type", "restaurant")

	var resp nearbySearchResponse
	if err := c.doGet(ctx, "nearbysearch", params, &resp); err != nil {
		return 0, err
	}
	if resp.Status != StatusOK && resp.Status != StatusZeroResults {
		return 0, &StatusError{Status: resp.Status, Message: resp.ErrorMessage}
	}
	return len(resp.Results), nil
}

// doGet performs one quota-accounted GET against a JSON endpoint
func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if err := c.reserveRequest(); err != nil {
		return err
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("key", c.config.APIKey)
	endpointURL := fmt.Sprintf("%s/%s/json?%s", c.config.BaseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code %d", ErrRequestFailed, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrRequestFailed, err)
	}
	return nil
}

func formatLatLng(l LatLng) string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
