package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/ekaty/ekaty-backend/pkg/places"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	HoursNotAvailable = "Hours not available"

	DefaultCity    = "Katy"
	DefaultState   = "TX"
	DefaultZipCode = "77494"

	maxSlugLength   = 100
	fallbackSlug    = "restaurant"
	maxPhotos       = 10
	photoWidth      = 800
	photoHeight     = 600
	featuredRating  = 4.5
	featuredReviews = 100
	maxReviews      = 3
)

var ErrInvalidPlace = errors.New("place has no id or name")

// PhotoURLBuilder turns a provider photo reference into a display URL.
type PhotoURLBuilder interface {
	GetPhotoURL(photoReference string, maxWidth, maxHeight int) string
}

// RestaurantTransformer maps provider places onto Restaurant values. It does no I/O.
type RestaurantTransformer struct {
	photos PhotoURLBuilder
	now    func() time.Time
}

func NewRestaurantTransformer(photos PhotoURLBuilder) *RestaurantTransformer {
	return &RestaurantTransformer{photos: photos, now: time.Now}
}

// Transform maps one place. The returned restaurant has no ID and no adminOverrides.
func (t *RestaurantTransformer) Transform(place places.Place) (*model.Restaurant, error) {
	name := strings.TrimSpace(place.Name)
	if place.PlaceID == "" || name == "" {
		return nil, ErrInvalidPlace
	}

	address := ParseAddress(place.Address())
	photoURLs := t.photoURLs(place.Photos)
	syncedAt := t.now().UTC()

	var description string
	if place.EditorialSummary != nil {
		description = place.EditorialSummary.Overview
	}

	var weekdayText []string
	if place.OpeningHours != nil {
		weekdayText = place.OpeningHours.WeekdayText
	}
	hours, err := FormatHours(weekdayText)
	if err != nil {
		return nil, fmt.Errorf("failed to format hours: %w", err)
	}

	placeID := place.PlaceID
	r := &model.Restaurant{
		Name:         name,
		Slug:         GenerateSlug(name),
		Description:  description,
		Address:      address.Street,
		City:         address.City,
		State:        address.State,
		ZipCode:      address.ZipCode,
		Latitude:     place.Geometry.Location.Lat,
		Longitude:    place.Geometry.Location.Lng,
		Phone:        place.FormattedPhoneNumber,
		Website:      place.Website,
		Categories:   MapCategories(place.Types),
		CuisineTypes: InferCuisineTypes(name, place.Types),
		Hours:        hours,
		PriceLevel:   MapPriceLevel(place.PriceLevel),
		Photos:       strings.Join(photoURLs, ","),
		Featured:     place.Rating >= featuredRating && place.UserRatingsTotal >= featuredReviews,
		Verified:     true,
		Active:       isOperational(place.BusinessStatus),
		Rating:       place.Rating,
		ReviewCount:  place.UserRatingsTotal,
		Source:       model.SourceGooglePlaces,
		SourceID:     &placeID,
		Metadata: model.RestaurantMetadata{
			PlaceID:           place.PlaceID,
			GoogleURL:         place.URL,
			GoogleRating:      place.Rating,
			GoogleReviewCount: place.UserRatingsTotal,
			BusinessStatus:    place.BusinessStatus,
			Types:             place.Types,
			EditorialSummary:  description,
			LastSyncedAt:      &syncedAt,
			Reviews:           reviewSnippets(place.Reviews),
		},
	}
	if len(photoURLs) > 0 {
		r.LogoURL = photoURLs[0]
	}

	return r, nil
}

// TransformAll maps every place, logging and omitting the ones that fail.
func (t *RestaurantTransformer) TransformAll(list []places.Place) []model.Restaurant {
	out := make([]model.Restaurant, 0, len(list))
	for _, p := range list {
		r, err := t.Transform(p)
		if err != nil {
			logger.Warn("Skipping place that failed to transform", map[string]interface{}{
				"place_id": p.PlaceID,
				"name":     p.Name,
				"error":    err.Error(),
			})
			continue
		}
		out = append(out, *r)
	}
	return out
}

func (t *RestaurantTransformer) photoURLs(photos []places.Photo) []string {
	if t.photos == nil {
		return nil
	}
	urls := make([]string, 0, maxPhotos)
	for _, p := range photos {
		if len(urls) == maxPhotos {
			break
		}
		if p.PhotoReference == "" {
			continue
		}
		urls = append(urls, t.photos.GetPhotoURL(p.PhotoReference, photoWidth, photoHeight))
	}
	return urls
}

// reviewSnippets keeps the first maxReviews reviews that have text.
func reviewSnippets(reviews []places.Review) []model.ReviewSnippet {
	var out []model.ReviewSnippet
	for _, r := range reviews {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		out = append(out, model.ReviewSnippet{Author: r.AuthorName, Rating: r.Rating, Text: text})
		if len(out) == maxReviews {
			break
		}
	}
	return out
}

// Missing status counts as operational; nearby results often omit it.
func isOperational(status string) bool {
	return status == "" || status == "OPERATIONAL"
}

// MapPriceLevel collapses the provider's 0-4 scale into four buckets.
func MapPriceLevel(level *int) model.PriceLevel {
	if level == nil {
		return model.PriceModerate
	}
	switch *level {
	case 0, 1:
		return model.PriceBudget
	case 2:
		return model.PriceModerate
	case 3:
		return model.PriceUpscale
	case 4:
		return model.PricePremium
	default:
		return model.PriceModerate
	}
}

// WeeklyHours serialises in calendar order, Monday first.
type WeeklyHours struct {
	Monday    string `json:"monday"`
	Tuesday   string `json:"tuesday"`
	Wednesday string `json:"wednesday"`
	Thursday  string `json:"thursday"`
	Friday    string `json:"friday"`
	Saturday  string `json:"saturday"`
	Sunday    string `json:"sunday"`
}

func (w *WeeklyHours) day(key string) *string {
	switch key {
	case "monday":
		return &w.Monday
	case "tuesday":
		return &w.Tuesday
	case "wednesday":
		return &w.Wednesday
	case "thursday":
		return &w.Thursday
	case "friday":
		return &w.Friday
	case "saturday":
		return &w.Saturday
	case "sunday":
		return &w.Sunday
	}
	return nil
}

var dayAliases = map[string]string{
	"mon": "monday", "monday": "monday",
	"tue": "tuesday", "tues": "tuesday", "tuesday": "tuesday",
	"wed": "wednesday", "wednesday": "wednesday",
	"thu": "thursday", "thur": "thursday", "thurs": "thursday", "thursday": "thursday",
	"fri": "friday", "friday": "friday",
	"sat": "saturday", "saturday": "saturday",
	"sun": "sunday", "sunday": "sunday",
}

// Google separates times with narrow and thin no-break spaces.
var hoursSpaceReplacer = strings.NewReplacer("\u202f", " ", "\u2009", " ", "\u00a0", " ")

// FormatHours parses "Day: open – close" lines into a JSON object keyed by
// lowercase weekday. Days without a line get the HoursNotAvailable sentinel.
func FormatHours(weekdayText []string) (string, error) {
	hours := WeeklyHours{}
	for _, line := range weekdayText {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key, ok := dayAliases[strings.ToLower(strings.TrimSpace(line[:idx]))]
		if !ok {
			continue
		}
		value := strings.TrimSpace(hoursSpaceReplacer.Replace(line[idx+1:]))
		if value == "" {
			continue
		}
		*hours.day(key) = value
	}

	for _, key := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		if d := hours.day(key); *d == "" {
			*d = HoursNotAvailable
		}
	}

	b, err := json.Marshal(hours)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var categoryLabels = map[string]string{
	"restaurant":    "Restaurant",
	"bar":           "Bar",
	"cafe":          "Cafe",
	"bakery":        "Bakery",
	"meal_delivery": "Delivery",
	"meal_takeaway": "Takeout",
	"night_club":    "Night Club",
	"food":          "Food",
}

// MapCategories keeps the known provider types, in order, as human labels.
func MapCategories(types []string) string {
	set := newOrderedSet()
	for _, t := range types {
		if label, ok := categoryLabels[t]; ok {
			set.add(label)
		}
	}
	if set.empty() {
		return "Restaurant"
	}
	return set.join()
}

type cuisineKeyword struct {
	pattern *regexp.Regexp
	label   string
}

func keyword(word, label string) cuisineKeyword {
	return cuisineKeyword{
		pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word)),
		label:   label,
	}
}

var cuisineKeywords = []cuisineKeyword{
	keyword("tex-mex", "Tex-Mex"),
	keyword("texmex", "Tex-Mex"),
	keyword("mexican", "Mexican"),
	keyword("taqueria", "Mexican"),
	keyword("taco", "Mexican"),
	keyword("italian", "Italian"),
	keyword("pizza", "Pizza"),
	keyword("pizzeria", "Pizza"),
	keyword("bbq", "BBQ"),
	keyword("barbecue", "BBQ"),
	keyword("bar-b-q", "BBQ"),
	keyword("sushi", "Sushi"),
	keyword("japanese", "Japanese"),
	keyword("ramen", "Japanese"),
	keyword("hibachi", "Japanese"),
	keyword("chinese", "Chinese"),
	keyword("thai", "Thai"),
	keyword("vietnamese", "Vietnamese"),
	keyword("pho ", "Vietnamese"),
	keyword("indian", "Indian"),
	keyword("korean", "Korean"),
	keyword("greek", "Greek"),
	keyword("mediterranean", "Mediterranean"),
	keyword("middle eastern", "Middle Eastern"),
	keyword("halal", "Halal"),
	keyword("seafood", "Seafood"),
	keyword("crawfish", "Cajun"),
	keyword("cajun", "Cajun"),
	keyword("steakhouse", "Steakhouse"),
	keyword("steak", "Steakhouse"),
	keyword("burger", "Burgers"),
	keyword("wings", "Wings"),
	keyword("chicken", "Chicken"),
	keyword("breakfast", "Breakfast"),
	keyword("brunch", "Breakfast"),
	keyword("deli ", "Deli"),
	keyword("sandwich", "Sandwiches"),
	keyword("vegan", "Vegan"),
	keyword("french", "French"),
	keyword("american", "American"),
}

// InferCuisineTypes matches the name against the keyword vocabulary and falls
// back to a guess from the provider types.
func InferCuisineTypes(name string, types []string) string {
	set := newOrderedSet()
	padded := name + " "
	for _, kw := range cuisineKeywords {
		if kw.pattern.MatchString(padded) {
			set.add(kw.label)
		}
	}
	if !set.empty() {
		return set.join()
	}

	has := func(t string) bool {
		for _, v := range types {
			if v == t {
				return true
			}
		}
		return false
	}
	switch {
	case has("bakery"):
		return "Bakery"
	case has("cafe"):
		return "Cafe"
	case has("bar"):
		return "Bar & Grill"
	default:
		return "American"
	}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug lowercases name, folds accents and joins alphanumeric runs with
// single hyphens. Collisions are resolved by the importer.
func GenerateSlug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	slug := nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

type AddressParts struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

var (
	zipPattern   = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	statePattern = regexp.MustCompile(`\b([A-Z]{2})\b`)
)

// ParseAddress splits "street, city, ST 12345, USA" style addresses.
// Missing parts fall back to Katy, TX 77494.
func ParseAddress(formatted string) AddressParts {
	parts := make([]string, 0, 4)
	for _, p := range strings.Split(formatted, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if n := len(parts); n > 1 {
		switch strings.ToLower(parts[n-1]) {
		case "usa", "us", "united states":
			parts = parts[:n-1]
		}
	}

	addr := AddressParts{City: DefaultCity, State: DefaultState, ZipCode: DefaultZipCode}
	if len(parts) == 0 {
		return addr
	}
	addr.Street = parts[0]
	if len(parts) == 1 {
		return addr
	}

	last := parts[len(parts)-1]
	if m := zipPattern.FindStringSubmatch(last); m != nil {
		addr.ZipCode = m[1]
	}
	if m := statePattern.FindStringSubmatch(last); m != nil {
		addr.State = m[1]
		if len(parts) >= 3 {
			addr.City = parts[len(parts)-2]
		}
	} else if zipPattern.MatchString(last) {
		if len(parts) >= 3 {
			addr.City = parts[len(parts)-2]
		}
	} else {
		addr.City = last
	}
	return addr
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) empty() bool { return len(s.items) == 0 }

func (s *orderedSet) join() string { return strings.Join(s.items, ", ") }
