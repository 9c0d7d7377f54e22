package seed

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheet      = errors.New("no sheets found in XLSX file")
	ErrNoData       = errors.New("no data found in XLSX file")
	ErrMissingName  = errors.New("sheet has no name column")
	numberOnlyRegex = regexp.MustCompile(`^[0-9]+$`)
	symbolOnlyRegex = regexp.MustCompile(`^[\p{P}\p{S}\s]+$`)
)

// column aliases accepted in the header row, lowercased
var columnAliases = map[string][]string{
	model.FieldName:         {"name", "restaurant", "restaurant name"},
	model.FieldAddress:      {"address", "street", "street address"},
	model.FieldCity:         {"city"},
	model.FieldState:        {"state"},
	model.FieldZipCode:      {"zip", "zip code", "zipcode", "postal code"},
	model.FieldPhone:        {"phone", "phone number"},
	model.FieldWebsite:      {"website", "url"},
	model.FieldEmail:        {"email"},
	model.FieldCuisineTypes: {"cuisine", "cuisines", "cuisine types"},
	model.FieldCategories:   {"category", "categories"},
	model.FieldPriceLevel:   {"price", "price level"},
	model.FieldDescription:  {"description"},
	model.FieldLatitude:     {"latitude", "lat"},
	model.FieldLongitude:    {"longitude", "lng", "lon"},
}

// ReadStats counts what happened to each data row.
type ReadStats struct {
	Rows       int
	Valid      int
	Skipped    int
	Duplicates int
}

// ReadRestaurants loads manual restaurant rows from the first sheet of an XLSX file.
func ReadRestaurants(filePath string) ([]model.Restaurant, ReadStats, error) {
	var stats ReadStats

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, stats, ErrNoSheet
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, stats, ErrNoData
	}

	columns := mapColumns(rows[0])
	if _, ok := columns[model.FieldName]; !ok {
		return nil, stats, ErrMissingName
	}

	seen := make(map[string]bool)
	var restaurants []model.Restaurant
	for i, row := range rows[1:] {
		stats.Rows++
		cell := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		name := cell(model.FieldName)
		if !isValidName(name) {
			stats.Skipped++
			logger.Debug("Skipping seed row", map[string]interface{}{
				"row":  i + 2,
				"name": name,
			})
			continue
		}

		key := strings.ToLower(name) + "|" + strings.ToLower(cell(model.FieldAddress))
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true

		r := model.Restaurant{
			Name:         name,
			Slug:         service.GenerateSlug(name),
			Description:  cell(model.FieldDescription),
			Address:      cell(model.FieldAddress),
			City:         orDefault(cell(model.FieldCity), service.DefaultCity),
			State:        orDefault(cell(model.FieldState), service.DefaultState),
			ZipCode:      orDefault(cell(model.FieldZipCode), service.DefaultZipCode),
			Phone:        cell(model.FieldPhone),
			Website:      cell(model.FieldWebsite),
			Email:        cell(model.FieldEmail),
			CuisineTypes: orDefault(cell(model.FieldCuisineTypes), "American"),
			Categories:   orDefault(cell(model.FieldCategories), "Restaurant"),
			Hours:        service.HoursNotAvailable,
			PriceLevel:   parsePriceLevel(cell(model.FieldPriceLevel)),
			Active:       true,
			Source:       model.SourceManualSeed,
		}
		r.Latitude, _ = strconv.ParseFloat(cell(model.FieldLatitude), 64)
		r.Longitude, _ = strconv.ParseFloat(cell(model.FieldLongitude), 64)

		restaurants = append(restaurants, r)
		stats.Valid++
	}

	return restaurants, stats, nil
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for idx, raw := range header {
		h := strings.ToLower(strings.TrimSpace(raw))
		for field, aliases := range columnAliases {
			for _, alias := range aliases {
				if h == alias {
					if _, taken := columns[field]; !taken {
						columns[field] = idx
					}
				}
			}
		}
	}
	return columns
}

// parsePriceLevel accepts enum names, dollar signs or provider levels 0-4.
func parsePriceLevel(raw string) model.PriceLevel {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch v {
	case string(model.PriceBudget), string(model.PriceModerate), string(model.PriceUpscale), string(model.PricePremium):
		return model.PriceLevel(v)
	}
	if v != "" && strings.Trim(v, "$") == "" {
		level := len(v)
		return service.MapPriceLevel(&level)
	}
	if level, err := strconv.Atoi(v); err == nil {
		return service.MapPriceLevel(&level)
	}
	return model.PriceModerate
}

func isValidName(name string) bool {
	if len([]rune(name)) < 2 {
		return false
	}
	return !numberOnlyRegex.MatchString(name) && !symbolOnlyRegex.MatchString(name)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
