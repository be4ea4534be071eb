// =============================================================================
// Property Feed Converter - Source Feed Reader
// =============================================================================
//
// This module decodes the source listing feed. The feed is a single XML
// document with one <property> element per listing directly under the root:
//
//   <root>
//     <property>
//       <id>123</id>
//       <ref>REF-1</ref>
//       <type>villa</type>
//       <town>marbella</town>
//       <province>Málaga</province>
//       <location><latitude>36.5</latitude><longitude>-4.9</longitude></location>
//       <desc><en>...</en></desc>
//       <surface_area><built>120</built><plot>300</plot></surface_area>
//       <images><image id="1"><url>https://...</url></image></images>
//     </property>
//   </root>
//
// Every leaf is decoded as *string so that a missing element stays
// distinguishable from an empty one. Interpretation of the values (defaults,
// numbers, lookups) belongs to the mapper.
//
// =============================================================================

package source

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"
)

// =============================================================================
// FEED STRUCTURE
// =============================================================================

// Feed is the decoded source document.
type Feed struct {
	XMLName    xml.Name
	Properties []Property `xml:"property"`
}

// Property is one source listing.
type Property struct {
	ID          *string `xml:"id"`
	Ref         *string `xml:"ref"`
	Type        *string `xml:"type"`
	Town        *string `xml:"town"`
	Province    *string `xml:"province"`
	Postcode    *string `xml:"postcode"`
	HouseNumber *string `xml:"house_number"`

	CreationDate         *string `xml:"creation_date"`
	LastModificationDate *string `xml:"last_modification_date"`

	Location      *Location      `xml:"location"`
	GeoHierarchy  *GeoHierarchy  `xml:"geo_hierarchy"`
	APISearchData *APISearchData `xml:"api_search_data"`

	ShowAddress      *string `xml:"show_address"`
	ListedOnlyOnIs24 *string `xml:"listed_only_on_is24"`
	GroupNumber      *string `xml:"group_number"`

	Desc           *Desc   `xml:"desc"`
	Description    *string `xml:"description"`
	FurnishingNote *string `xml:"furnishing_note"`
	LocationNote   *string `xml:"location_note"`
	OtherNote      *string `xml:"other_note"`

	// tradeSite fields.
	CommercializationType  *string `xml:"commercialization_type"`
	UtilizationTradeSite   *string `xml:"utilization_trade_site"`
	Tenancy                *string `xml:"tenancy"`
	MinDivisible           *string `xml:"min_divisible"`
	FreeFrom               *string `xml:"free_from"`
	ShortTermConstructible *string `xml:"short_term_constructible"`
	BuildingPermission     *string `xml:"building_permission"`
	Demolition             *string `xml:"demolition"`
	SiteDevelopmentType    *string `xml:"site_development_type"`
	SiteConstructibleType  *string `xml:"site_constructible_type"`
	GRZ                    *string `xml:"grz"`
	GFZ                    *string `xml:"gfz"`
	LeaseInterval          *string `xml:"lease_interval"`

	Beds  *string `xml:"beds"`
	Baths *string `xml:"baths"`

	SurfaceArea *SurfaceArea `xml:"surface_area"`

	Price             *string `xml:"price"`
	Currency          *string `xml:"currency"`
	MarketingType     *string `xml:"marketing_type"`
	PriceIntervalType *string `xml:"price_interval_type"`

	Courtage *Courtage `xml:"courtage"`

	Images []Image `xml:"images>image"`
}

// Location holds the coordinates of a listing.
type Location struct {
	Latitude  *string `xml:"latitude"`
	Longitude *string `xml:"longitude"`
}

// GeoHierarchy holds the geo codes of a listing.
type GeoHierarchy struct {
	Continent     *GeoLevel `xml:"continent"`
	Country       *GeoLevel `xml:"country"`
	Region        *GeoLevel `xml:"region"`
	City          *GeoLevel `xml:"city"`
	Quarter       *GeoLevel `xml:"quarter"`
	Neighbourhood *GeoLevel `xml:"neighbourhood"`
}

// GeoLevel is one level of the geo hierarchy.
type GeoLevel struct {
	GeoCodeID     *string `xml:"geo_code_id"`
	FullGeoCodeID *string `xml:"full_geo_code_id"`
}

// APISearchData holds the free search fields.
type APISearchData struct {
	SearchField1 *string `xml:"search_field1"`
	SearchField2 *string `xml:"search_field2"`
	SearchField3 *string `xml:"search_field3"`
}

// Desc holds the per-language descriptions. Only English is used.
type Desc struct {
	EN *string `xml:"en"`
}

// SurfaceArea holds the structured surface figures.
type SurfaceArea struct {
	Built *string `xml:"built"`
	Plot  *string `xml:"plot"`
	Total *string `xml:"total"`
	Net   *string `xml:"net"`
}

// Courtage holds the commission terms.
type Courtage struct {
	HasCourtage *string `xml:"has_courtage"`
	Courtage    *string `xml:"courtage"`
	Note        *string `xml:"courtage_note"`
}

// Image is one photo reference.
type Image struct {
	ID  string  `xml:"id,attr"`
	URL *string `xml:"url"`
}

// =============================================================================
// PARSING
// =============================================================================

// Parse decodes a feed from r. Documents declaring a non-UTF-8 encoding are
// transcoded. Any syntax error fails the whole document.
func Parse(r io.Reader) (*Feed, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var feed Feed
	if err := decoder.Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	// Decode stops after the root element; anything but trailing whitespace,
	// comments or processing instructions makes the document malformed.
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode feed: %w", err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			return nil, fmt.Errorf("failed to decode feed: multiple root elements")
		}
	}

	return &feed, nil
}

// ParseFile opens and decodes the feed at path.
func ParseFile(path string) (*Feed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	defer file.Close()

	return Parse(file)
}
