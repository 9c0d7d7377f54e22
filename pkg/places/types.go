package places

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type SearchPoint struct {
	Name     string
	Location LatLng
}

type Geometry struct {
	Location LatLng `json:"location"`
}

type OpeningHours struct {
	OpenNow     *bool    `json:"open_now,omitempty"`
	WeekdayText []string `json:"weekday_text,omitempty"`
}

type Photo struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type Review struct {
	AuthorName string `json:"author_name"`
	Rating     int    `json:"rating"`
	Text       string `json:"text"`
	Time       int64  `json:"time"`
}

type EditorialSummary struct {
	Overview string `json:"overview"`
}

// Place is a nearby-search candidate or a full detail record.
type Place struct {
	PlaceID              string            `json:"place_id"`
	Name                 string            `json:"name"`
	Vicinity             string            `json:"vicinity,omitempty"`
	FormattedAddress     string            `json:"formatted_address,omitempty"`
	Geometry             Geometry          `json:"geometry"`
	FormattedPhoneNumber string            `json:"formatted_phone_number,omitempty"`
	Website              string            `json:"website,omitempty"`
	OpeningHours         *OpeningHours     `json:"opening_hours,omitempty"`
	PriceLevel           *int              `json:"price_level,omitempty"`
	Rating               float64           `json:"rating,omitempty"`
	UserRatingsTotal     int               `json:"user_ratings_total,omitempty"`
	Reviews              []Review          `json:"reviews,omitempty"`
	Photos               []Photo           `json:"photos,omitempty"`
	Types                []string          `json:"types,omitempty"`
	BusinessStatus       string            `json:"business_status,omitempty"`
	URL                  string            `json:"url,omitempty"`
	EditorialSummary     *EditorialSummary `json:"editorial_summary,omitempty"`
}

// Address returns the formatted address, falling back to the vicinity.
func (p *Place) Address() string {
	if p.FormattedAddress != "" {
		return p.FormattedAddress
	}
	return p.Vicinity
}

type nearbySearchResponse struct {
	Status        string  `json:"status"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Result       Place  `json:"result"`
}

// ProgressFunc is called after each detail fetch.
type ProgressFunc func(current, total int, name string)
