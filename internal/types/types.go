// =============================================================================
// Property Feed Converter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - mapper     (produces Mapping values)
//   - validation (checks required fields on a Mapping)
//   - xmlwriter  (builds a target document from a Mapping)
//   - converter  (drives the per-listing pipeline)
//
// =============================================================================

package types

// =============================================================================
// PROPERTY TYPES
// =============================================================================

// PropertyType is the resolved target variant of a listing. Its value is also
// the local name of the root element of the generated document.
type PropertyType string

const (
	HouseBuy      PropertyType = "houseBuy"
	ApartmentBuy  PropertyType = "apartmentBuy"
	LivingBuySite PropertyType = "livingBuySite"
	TradeSite     PropertyType = "tradeSite"
)

// PropertyTypes lists the supported variants in a stable order.
var PropertyTypes = []PropertyType{HouseBuy, ApartmentBuy, LivingBuySite, TradeSite}

// Valid reports whether t is one of the four supported variants.
func (t PropertyType) Valid() bool {
	switch t {
	case HouseBuy, ApartmentBuy, LivingBuySite, TradeSite:
		return true
	}
	return false
}

// HasRooms reports whether bedroom and bathroom counts apply to the variant.
func (t PropertyType) HasRooms() bool {
	return t == HouseBuy || t == ApartmentBuy
}

// =============================================================================
// NORMALIZED MAPPING
// =============================================================================

// Mapping is the normalized, flat representation of one source listing.
//
// A Mapping is created once by the mapper and consumed once by the document
// builder. Pointer fields are nullable: nil means "absent" and is what the
// required-field check looks at.
type Mapping struct {
	Type PropertyType

	// SourceLabel is the original, untrimmed property type label.
	SourceLabel string

	ExternalID           *string
	Title                *string
	CreationDate         *string
	LastModificationDate *string

	// Address.
	Street      *string
	HouseNumber string
	Postcode    string
	City        *string
	Country     string
	Region      string
	Latitude    *float64
	Longitude   *float64

	Geo GeoHierarchy

	ShowAddress      bool
	ListedOnlyOnIs24 *string
	SearchFields     [3]*string
	GroupNumber      *string

	DescriptionNote string
	FurnishingNote  *string
	LocationNote    *string
	OtherNote       *string

	BuildingType          *string
	ApartmentType         *string
	CommercializationType *string
	UtilizationTradeSite  *string

	// Trade holds the commercial extras. It is nil for every variant except
	// tradeSite.
	Trade *TradeSiteDetails

	Bedrooms  *string
	Bathrooms *string

	LivingSpace     *float64
	PlotArea        *float64
	TotalFloorSpace *float64
	NetFloorSpace   *float64

	// Value is the price. The mapper always sets it, falling back to zero.
	Value             *float64
	Currency          string
	MarketingType     string
	PriceIntervalType *string

	HasCourtage  string
	Courtage     *string
	CourtageNote *string
}

// GeoHierarchy holds the short and full geo codes of a listing.
type GeoHierarchy struct {
	ContinentCode     *string
	ContinentFullCode *string
	CountryCode       *string
	CountryFullCode   *string
	RegionCode        *string
	RegionFullCode    *string
	CityCode          *string
	CityFullCode      *string
	QuarterCode       *string
	QuarterFullCode   *string
	NeighbourhoodCode *string
}

// TradeSiteDetails holds the tradeSite-only fields.
type TradeSiteDetails struct {
	RecommendedUseTypes    []string
	Tenancy                *string
	MinDivisible           *float64
	FreeFrom               *string
	ShortTermConstructible bool
	BuildingPermission     bool
	Demolition             bool
	SiteDevelopmentType    string
	SiteConstructibleType  string
	GRZ                    *float64
	GFZ                    *float64
	LeaseInterval          string
}

// =============================================================================
// FIELD ACCESS
// =============================================================================

// ID returns the external identifier, or "unknown" when it is absent.
// It is meant for log lines and reports.
func (m *Mapping) ID() string {
	if m == nil || m.ExternalID == nil || *m.ExternalID == "" {
		return "unknown"
	}
	return *m.ExternalID
}

// Has reports whether the named field is present and non-null.
// Field names use the target element names (externalId, plotArea, ...).
// Unknown names report false.
func (m *Mapping) Has(field string) bool {
	switch field {
	case "externalId":
		return m.ExternalID != nil
	case "title":
		return m.Title != nil
	case "value":
		return m.Value != nil
	case "livingSpace":
		return m.LivingSpace != nil
	case "plotArea":
		return m.PlotArea != nil
	case "totalFloorSpace":
		return m.TotalFloorSpace != nil
	case "netFloorSpace":
		return m.NetFloorSpace != nil
	case "commercializationType":
		return m.CommercializationType != nil
	case "utilizationTradeSite":
		return m.UtilizationTradeSite != nil
	case "buildingType":
		return m.BuildingType != nil
	case "apartmentType":
		return m.ApartmentType != nil
	case "street":
		return m.Street != nil
	case "city":
		return m.City != nil
	}
	return false
}
