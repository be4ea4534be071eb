// =============================================================================
// Property Feed Converter - Listing Mapper
// =============================================================================
//
// This module turns decoded source listings into normalized mappings, one per
// listing whose type label resolves to a supported target variant.
//
// FIELD RESOLUTION:
//   - Type:        lowercase-trim of the label, looked up in tables.yaml.
//                  No match (or no label) skips the listing.
//   - Title:       "<Type> in <Town>", both capitalized.
//   - Street:      "Street in <Town>". The feed has no street-level data.
//   - Postcode:    "29000" when absent, cut at the first space.
//   - Region:      province looked up in the region table, else passed
//                  through, else "Unknown".
//   - Description: English text, else the flat description, else
//                  "<Type>: No description provided". Always prefixed with
//                  the capitalized type label and cleaned.
//   - Areas:       structured surface block (total/net default to plot), or
//                  a zero plot replicated into total/net.
//   - Price:       float, zero when absent or unparseable.
//
// Empty elements are treated like missing ones everywhere.
//
// =============================================================================

package mapper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ginjaninja78/property-feed-converter/internal/source"
	"github.com/ginjaninja78/property-feed-converter/internal/textclean"
	"github.com/ginjaninja78/property-feed-converter/internal/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults applied when the feed leaves a field out.
const (
	DefaultPostcode      = "29000"
	DefaultHouseNumber   = "0"
	DefaultCountry       = "ESP"
	DefaultCurrency      = "EUR"
	DefaultMarketingType = "PURCHASE"
	DefaultHasCourtage   = "NOT_APPLICABLE"

	defaultCommercialization = "BUY"
	defaultUtilization       = "LEISURE"
)

// ErrUnsupportedType is returned for listings whose type label is missing or
// has no entry in the type table.
var ErrUnsupportedType = errors.New("unsupported property type")

// =============================================================================
// MAPPER
// =============================================================================

// Stats counts what happened to the listings of one feed.
type Stats struct {
	Total   int
	Mapped  int
	Skipped int
	Failed  int

	// Rejections lists the skipped and failed listings in feed order.
	Rejections []Rejection
}

// Rejection records a listing that produced no mapping.
type Rejection struct {
	ExternalID string
	Skipped    bool
	Err        error
}

// Mapper converts source listings into normalized mappings.
type Mapper struct {
	logger *slog.Logger
}

// New creates a Mapper. A nil logger discards all output.
func New(logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Mapper{logger: logger}
}

// MapFeed maps every listing of feed in document order. Unsupported listings
// are skipped and listings that fail to map are logged and dropped; neither
// stops the run.
func (mp *Mapper) MapFeed(feed *source.Feed) ([]types.Mapping, Stats) {
	stats := Stats{Total: len(feed.Properties)}
	mappings := make([]types.Mapping, 0, len(feed.Properties))

	for i := range feed.Properties {
		p := &feed.Properties[i]
		ref := deref(p.Ref)

		m, err := mp.MapProperty(p)
		switch {
		case errors.Is(err, ErrUnsupportedType):
			stats.Skipped++
			stats.Rejections = append(stats.Rejections, Rejection{ExternalID: ref, Skipped: true, Err: err})
			mp.logger.Warn("Listing skipped, unsupported property type",
				"external_id", ref, "type", deref(p.Type))
		case err != nil:
			stats.Failed++
			stats.Rejections = append(stats.Rejections, Rejection{ExternalID: ref, Err: err})
			mp.logger.Error("Failed to map listing", "external_id", ref, "error", err)
		default:
			stats.Mapped++
			mappings = append(mappings, *m)
			mp.logger.Debug("Listing mapped", "external_id", ref, "type", m.Type)
		}
	}

	return mappings, stats
}

// MapProperty maps a single listing. It returns ErrUnsupportedType (wrapped)
// when the type label does not resolve, and a plain error when a field
// cannot be interpreted.
func (mp *Mapper) MapProperty(p *source.Property) (*types.Mapping, error) {
	label := deref(p.Type)
	propertyType, ok := ResolveType(label)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, label)
	}

	town, ok := value(p.Town)
	if !ok {
		return nil, fmt.Errorf("listing has no town")
	}

	typeName := Capitalize(strings.TrimSpace(label))
	townName := Capitalize(town)

	m := &types.Mapping{
		Type:                 propertyType,
		SourceLabel:          label,
		ExternalID:           optional(p.Ref),
		Title:                strPtr(strings.TrimSpace(typeName + " in " + townName)),
		CreationDate:         optional(p.CreationDate),
		LastModificationDate: optional(p.LastModificationDate),
		Street:               strPtr("Street in " + townName),
		HouseNumber:          withDefault(p.HouseNumber, DefaultHouseNumber),
		Postcode:             NormalizePostcode(withDefault(p.Postcode, DefaultPostcode)),
		City:                 strPtr(town),
		Country:              DefaultCountry,
		Region:               RegionFor(deref(p.Province)),
		ShowAddress:          parseBool(p.ShowAddress, true),
		ListedOnlyOnIs24:     optional(p.ListedOnlyOnIs24),
		GroupNumber:          optional(p.GroupNumber),
		FurnishingNote:       cleaned(p.FurnishingNote),
		LocationNote:         cleaned(p.LocationNote),
		OtherNote:            cleaned(p.OtherNote),
		Currency:             withDefault(p.Currency, DefaultCurrency),
		MarketingType:        withDefault(p.MarketingType, DefaultMarketingType),
		PriceIntervalType:    optional(p.PriceIntervalType),
		HasCourtage:          DefaultHasCourtage,
	}

	mp.mapCoordinates(p, m)
	mapGeo(p.GeoHierarchy, &m.Geo)
	if s := p.APISearchData; s != nil {
		m.SearchFields = [3]*string{optional(s.SearchField1), optional(s.SearchField2), optional(s.SearchField3)}
	}

	m.DescriptionNote = mp.description(p, typeName)

	if err := mapVariant(p, m); err != nil {
		return nil, err
	}

	if propertyType.HasRooms() {
		m.Bedrooms = optional(p.Beds)
		m.Bathrooms = optional(p.Baths)
	}

	if err := mapAreas(p.SurfaceArea, m); err != nil {
		return nil, err
	}

	m.Value = mp.price(p)

	if c := p.Courtage; c != nil {
		m.HasCourtage = withDefault(c.HasCourtage, DefaultHasCourtage)
		m.Courtage = optional(c.Courtage)
		m.CourtageNote = cleaned(c.Note)
	}

	return m, nil
}

// =============================================================================
// FIELD HELPERS
// =============================================================================

func (mp *Mapper) description(p *source.Property, typeName string) string {
	text, ok := "", false
	if p.Desc != nil {
		text, ok = value(p.Desc.EN)
	}
	if !ok {
		text, ok = value(p.Description)
	}
	if !ok {
		mp.logger.Warn("No description found", "external_id", deref(p.Ref))
		text = "No description provided"
	}
	return textclean.Clean(typeName + ": " + text)
}

func (mp *Mapper) mapCoordinates(p *source.Property, m *types.Mapping) {
	if p.Location == nil {
		return
	}
	var err error
	if m.Latitude, err = parseFloat(p.Location.Latitude); err != nil {
		mp.logger.Warn("Ignoring invalid latitude", "external_id", deref(p.Ref), "error", err)
		m.Latitude = nil
	}
	if m.Longitude, err = parseFloat(p.Location.Longitude); err != nil {
		mp.logger.Warn("Ignoring invalid longitude", "external_id", deref(p.Ref), "error", err)
		m.Longitude = nil
	}
}

func (mp *Mapper) price(p *source.Property) *float64 {
	price, err := parseFloat(p.Price)
	if err != nil {
		mp.logger.Warn("Unparseable price, using 0", "external_id", deref(p.Ref), "error", err)
	}
	if price == nil {
		price = new(float64)
	}
	return price
}

func mapGeo(g *source.GeoHierarchy, out *types.GeoHierarchy) {
	if g == nil {
		return
	}
	level := func(l *source.GeoLevel) (*string, *string) {
		if l == nil {
			return nil, nil
		}
		return optional(l.GeoCodeID), optional(l.FullGeoCodeID)
	}
	out.ContinentCode, out.ContinentFullCode = level(g.Continent)
	out.CountryCode, out.CountryFullCode = level(g.Country)
	out.RegionCode, out.RegionFullCode = level(g.Region)
	out.CityCode, out.CityFullCode = level(g.City)
	out.QuarterCode, out.QuarterFullCode = level(g.Quarter)
	out.NeighbourhoodCode, _ = level(g.Neighbourhood)
}

func mapVariant(p *source.Property, m *types.Mapping) error {
	switch m.Type {
	case types.HouseBuy:
		m.BuildingType = strPtr(BuildingType(m.SourceLabel))
	case types.ApartmentBuy:
		m.ApartmentType = strPtr(BuildingType(m.SourceLabel))
	case types.LivingBuySite:
		m.CommercializationType = strPtr(defaultCommercialization)
	case types.TradeSite:
		m.CommercializationType = strPtr(withDefault(p.CommercializationType, defaultCommercialization))
		m.UtilizationTradeSite = strPtr(withDefault(p.UtilizationTradeSite, defaultUtilization))

		trade := &types.TradeSiteDetails{
			RecommendedUseTypes:    []string{RecommendedUse(m.SourceLabel)},
			Tenancy:                optional(p.Tenancy),
			FreeFrom:               optional(p.FreeFrom),
			ShortTermConstructible: parseBool(p.ShortTermConstructible, false),
			BuildingPermission:     parseBool(p.BuildingPermission, false),
			Demolition:             parseBool(p.Demolition, false),
			SiteDevelopmentType:    withDefault(p.SiteDevelopmentType, NoInformation),
			SiteConstructibleType:  withDefault(p.SiteConstructibleType, NoInformation),
			LeaseInterval:          withDefault(p.LeaseInterval, NoInformation),
		}
		var err error
		if trade.MinDivisible, err = parseFloat(p.MinDivisible); err != nil {
			return fmt.Errorf("min_divisible: %w", err)
		}
		if trade.GRZ, err = parseFloat(p.GRZ); err != nil {
			return fmt.Errorf("grz: %w", err)
		}
		if trade.GFZ, err = parseFloat(p.GFZ); err != nil {
			return fmt.Errorf("gfz: %w", err)
		}
		m.Trade = trade
	}
	return nil
}

// mapAreas fills the area fields. Without a structured surface block there is
// no usable source figure, so the plot area is zero.
func mapAreas(sa *source.SurfaceArea, m *types.Mapping) error {
	if sa == nil {
		m.PlotArea = new(float64)
		m.TotalFloorSpace = new(float64)
		m.NetFloorSpace = new(float64)
		return nil
	}

	var err error
	if m.LivingSpace, err = parseFloat(sa.Built); err != nil {
		return fmt.Errorf("surface_area/built: %w", err)
	}
	if m.PlotArea, err = parseFloat(sa.Plot); err != nil {
		return fmt.Errorf("surface_area/plot: %w", err)
	}
	if m.TotalFloorSpace, err = parseFloat(sa.Total); err != nil {
		return fmt.Errorf("surface_area/total: %w", err)
	}
	if m.NetFloorSpace, err = parseFloat(sa.Net); err != nil {
		return fmt.Errorf("surface_area/net: %w", err)
	}
	if m.TotalFloorSpace == nil {
		m.TotalFloorSpace = copyFloat(m.PlotArea)
	}
	if m.NetFloorSpace == nil {
		m.NetFloorSpace = copyFloat(m.PlotArea)
	}
	return nil
}

// Capitalize upper-cases the first letter of s and lower-cases the rest.
func Capitalize(s string) string {
	s = cases.Lower(language.Und).String(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// NormalizePostcode cuts a postcode at its first space ("29000 ESP" becomes
// "29000"). Applying it twice gives the same result as applying it once.
func NormalizePostcode(postcode string) string {
	if i := strings.IndexByte(postcode, ' '); i >= 0 {
		return postcode[:i]
	}
	return postcode
}

func value(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

func deref(s *string) string {
	v, _ := value(s)
	return v
}

func optional(s *string) *string {
	v, ok := value(s)
	if !ok {
		return nil
	}
	return &v
}

func withDefault(s *string, def string) string {
	if v, ok := value(s); ok {
		return v
	}
	return def
}

func cleaned(s *string) *string {
	v, ok := value(s)
	if !ok {
		return nil
	}
	c := textclean.Clean(v)
	return &c
}

func parseFloat(s *string) (*float64, error) {
	v, ok := value(s)
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("invalid number %q", v)
	}
	return &f, nil
}

func parseBool(s *string, def bool) bool {
	v, ok := value(s)
	if !ok {
		return def
	}
	return strings.EqualFold(v, "true")
}

func strPtr(s string) *string {
	return &s
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
