package places

import "time"

// DefaultBaseURL is the legacy Places web service root.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Config represents the configuration for the places client
type Config struct {
	// APIKey is the provider key sent with every request
	APIKey string

	// BaseURL is the places web service root, overridable for tests
	BaseURL string

	// DailyLimit caps requests per rolling 24 hours in this process
	DailyLimit int

	// SearchRadius is the nearby-search radius in meters for each search point
	SearchRadius int

	// PageTokenDelay is the wait before a next_page_token becomes valid
	PageTokenDelay time.Duration

	// DetailDelay spaces consecutive detail requests
	DetailDelay time.Duration

	// PointDelay spaces consecutive search points
	PointDelay time.Duration

	// Timeout bounds a single HTTP request
	Timeout time.Duration

	// SearchPoints overrides the default Katy grid when non-empty
	SearchPoints []SearchPoint
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.DailyLimit <= 0 {
		c.DailyLimit = 45000
	}
	if c.SearchRadius <= 0 {
		c.SearchRadius = 5000
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if len(c.SearchPoints) == 0 {
		c.SearchPoints = KatySearchPoints
	}
}
