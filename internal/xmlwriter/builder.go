// =============================================================================
// Property Feed Converter - Document Builders
// =============================================================================
//
// This module builds one target document per normalized mapping. There are
// four variants, one per property type. They share the common element block
// and differ only in their required fields and the elements that follow it:
//
//   houseBuy      buildingType, bedrooms, bathrooms, price, livingSpace,
//                 plotArea, numberOfRooms, courtage
//   apartmentBuy  apartmentType, bedrooms, bathrooms, price, livingSpace,
//                 numberOfRooms, courtage
//   livingBuySite commercializationType, price, plotArea, courtage
//   tradeSite     commercializationType, utilizationTradeSite, price,
//                 plotArea, courtage (with fee)
//
// Element order is fixed; the target schema validates it.
//
// =============================================================================

package xmlwriter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/property-feed-converter/internal/mapper"
	"github.com/ginjaninja78/property-feed-converter/internal/types"
	"github.com/ginjaninja78/property-feed-converter/internal/validation"
)

// MaxNoteLength is the character limit of the note elements.
const MaxNoteLength = 2000

const paragraphSeparator = "\n\n"

// ErrUnsupportedType is returned when no variant matches the mapping's type.
var ErrUnsupportedType = errors.New("no document variant for property type")

// =============================================================================
// BUILDER INTERFACE
// =============================================================================

// Document is a built and serialized target document.
type Document struct {
	Type       types.PropertyType
	ExternalID string
	Root       *XMLElement
	XML        []byte

	// Warnings lists the enumerated values that were replaced by a fallback.
	Warnings []*validation.ValidationError
}

// Builder builds a document for one property type.
type Builder interface {
	Build(m *types.Mapping) (*Document, error)
}

// variantBuilder is the single Builder implementation, parameterized by the
// variant's tag, required fields and body.
type variantBuilder struct {
	tag      types.PropertyType
	required []string
	body     func(d *document)
}

var builders = map[types.PropertyType]Builder{
	types.HouseBuy: variantBuilder{
		tag:      types.HouseBuy,
		required: []string{"externalId", "title", "value", "livingSpace", "plotArea"},
		body:     (*document).houseBuy,
	},
	types.ApartmentBuy: variantBuilder{
		tag:      types.ApartmentBuy,
		required: []string{"externalId", "title", "value", "livingSpace"},
		body:     (*document).apartmentBuy,
	},
	types.LivingBuySite: variantBuilder{
		tag:      types.LivingBuySite,
		required: []string{"externalId", "title", "value", "plotArea", "commercializationType"},
		body:     (*document).livingBuySite,
	},
	types.TradeSite: variantBuilder{
		tag:      types.TradeSite,
		required: []string{"externalId", "title", "value", "plotArea", "commercializationType", "utilizationTradeSite"},
		body:     (*document).tradeSite,
	},
}

// BuilderFor returns the builder registered for t.
func BuilderFor(t types.PropertyType) (Builder, bool) {
	b, ok := builders[t]
	return b, ok
}

// BuildDocument selects the variant for m and builds its document.
//
// RETURNS:
//   - ErrUnsupportedType (wrapped) when m's type has no variant.
//   - *validation.MissingFieldError when a required field is absent.
func BuildDocument(m *types.Mapping) (*Document, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil mapping", ErrUnsupportedType)
	}
	b, ok := BuilderFor(m.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, m.Type)
	}
	return b.Build(m)
}

// Build implements Builder.
func (b variantBuilder) Build(m *types.Mapping) (*Document, error) {
	if m == nil || m.Type != b.tag {
		return nil, fmt.Errorf("%w: %s builder cannot build this mapping", ErrUnsupportedType, b.tag)
	}
	if err := validation.RequireFields(m, b.required); err != nil {
		return nil, err
	}

	d := &document{m: m, root: newRoot(string(b.tag))}
	d.common()
	b.body(d)

	return &Document{
		Type:       b.tag,
		ExternalID: m.ID(),
		Root:       d.root,
		XML:        Marshal(d.root),
		Warnings:   d.warnings,
	}, nil
}

// =============================================================================
// DOCUMENT CONSTRUCTION
// =============================================================================

// document is the state of one build.
type document struct {
	m        *types.Mapping
	root     *XMLElement
	warnings []*validation.ValidationError
}

// add appends a text element, substituting the fallback for out-of-range
// enumerated values.
func (d *document) add(parent *XMLElement, name, value string) {
	if normalized, warning := validation.NormalizeEnum(name, value); warning != nil {
		warning.ExternalID = d.m.ID()
		d.warnings = append(d.warnings, warning)
		value = normalized
	}
	parent.text(name, value)
}

// addOptional appends a text element when value is set.
func (d *document) addOptional(parent *XMLElement, name string, value *string) {
	if value != nil {
		d.add(parent, name, *value)
	}
}

// addNote appends a CDATA note element when value is set.
func (d *document) addNote(name string, value *string) {
	if value != nil {
		d.root.cdata(name, *value)
	}
}

// common emits the element block shared by all variants.
func (d *document) common() {
	m, root := d.m, d.root

	d.addOptional(root, "externalId", m.ExternalID)
	d.addOptional(root, "title", m.Title)
	d.addOptional(root, "creationDate", m.CreationDate)
	d.addOptional(root, "lastModificationDate", m.LastModificationDate)

	address := root.child("address")
	d.addOptional(address, "street", m.Street)
	d.add(address, "houseNumber", orDefault(m.HouseNumber, mapper.DefaultHouseNumber))
	d.add(address, "postcode", mapper.NormalizePostcode(orDefault(m.Postcode, mapper.DefaultPostcode)))
	if m.City != nil {
		d.add(address, "city", mapper.Capitalize(*m.City))
	}

	region := address.child("internationalCountryRegion")
	d.add(region, "country", orDefault(m.Country, mapper.DefaultCountry))
	d.add(region, "region", orDefault(m.Region, "Unknown"))

	if m.Latitude != nil || m.Longitude != nil {
		coordinate := address.child("wgs84Coordinate")
		if m.Latitude != nil {
			d.add(coordinate, "latitude", formatFloat(*m.Latitude))
		}
		if m.Longitude != nil {
			d.add(coordinate, "longitude", formatFloat(*m.Longitude))
		}
	}

	description, overflow := SplitDescription(m.DescriptionNote)
	root.cdata("descriptionNote", description)
	d.addNote("furnishingNote", m.FurnishingNote)
	d.addNote("locationNote", m.LocationNote)
	if overflow != nil {
		d.addNote("otherNote", overflow)
	} else {
		d.addNote("otherNote", m.OtherNote)
	}

	d.add(root, "showAddress", strconv.FormatBool(m.ShowAddress))
	d.addOptional(root, "listedOnlyOnIs24", m.ListedOnlyOnIs24)
}

func (d *document) price() {
	price := d.root.child("price")
	d.add(price, "value", formatFloat(*d.m.Value))
	d.add(price, "currency", orDefault(d.m.Currency, mapper.DefaultCurrency))
	d.add(price, "marketingType", orDefault(d.m.MarketingType, mapper.DefaultMarketingType))
}

func (d *document) courtage(withFee bool) {
	courtage := d.root.child("courtage")
	d.add(courtage, "hasCourtage", orDefault(d.m.HasCourtage, mapper.DefaultHasCourtage))
	if withFee {
		d.addOptional(courtage, "courtage", d.m.Courtage)
	}
}

func (d *document) rooms() {
	d.addOptional(d.root, "numberOfBedRooms", d.m.Bedrooms)
	d.addOptional(d.root, "numberOfBathRooms", d.m.Bathrooms)
}

func (d *document) numberOfRooms() {
	d.add(d.root, "numberOfRooms", strconv.Itoa(NumberOfRooms(d.m.Bedrooms, d.m.Bathrooms)))
}

// =============================================================================
// VARIANT BODIES
// =============================================================================

func (d *document) houseBuy() {
	d.add(d.root, "buildingType", orDefaultPtr(d.m.BuildingType, mapper.NoInformation))
	d.rooms()
	d.price()
	d.add(d.root, "livingSpace", formatArea(*d.m.LivingSpace))
	d.add(d.root, "plotArea", formatArea(*d.m.PlotArea))
	d.numberOfRooms()
	d.courtage(false)
}

func (d *document) apartmentBuy() {
	d.add(d.root, "apartmentType", orDefaultPtr(d.m.ApartmentType, mapper.NoInformation))
	d.rooms()
	d.price()
	d.add(d.root, "livingSpace", formatArea(*d.m.LivingSpace))
	d.numberOfRooms()
	d.courtage(false)
}

func (d *document) livingBuySite() {
	d.add(d.root, "commercializationType", *d.m.CommercializationType)
	d.price()
	d.add(d.root, "plotArea", formatArea(*d.m.PlotArea))
	d.courtage(false)
}

func (d *document) tradeSite() {
	d.add(d.root, "commercializationType", *d.m.CommercializationType)
	d.add(d.root, "utilizationTradeSite", *d.m.UtilizationTradeSite)
	d.price()
	d.add(d.root, "plotArea", formatArea(*d.m.PlotArea))
	d.courtage(true)
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

// SplitDescription enforces the note length limit on a description. A
// description within the limit is returned unchanged with a nil overflow.
// Otherwise leading paragraphs are packed into the first segment while the
// joined length stays within MaxNoteLength; packing stops at the first
// paragraph that does not fit and everything from there on becomes the
// overflow, truncated to MaxNoteLength.
func SplitDescription(description string) (string, *string) {
	if utf8.RuneCountInString(description) <= MaxNoteLength {
		return description, nil
	}

	first, rest := packParagraphs(strings.Split(description, paragraphSeparator), MaxNoteLength)
	head := strings.Join(first, paragraphSeparator)
	if len(rest) == 0 {
		return head, nil
	}

	overflow := truncateRunes(strings.Join(rest, paragraphSeparator), MaxNoteLength)
	return head, &overflow
}

// packParagraphs splits paragraphs into a prefix whose joined length is at
// most limit and the remaining suffix.
func packParagraphs(paragraphs []string, limit int) (first, rest []string) {
	length := 0
	for i, p := range paragraphs {
		n := utf8.RuneCountInString(p)
		if length+n+len(first)*len(paragraphSeparator) > limit {
			return first, paragraphs[i:]
		}
		first = append(first, p)
		length += n
	}
	return first, nil
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// NumberOfRooms sums bedroom and bathroom counts. Missing or non-integer
// counts count as zero.
func NumberOfRooms(bedrooms, bathrooms *string) int {
	return atoiOrZero(bedrooms) + atoiOrZero(bathrooms)
}

func atoiOrZero(s *string) int {
	if s == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return 0
	}
	return n
}

// formatFloat renders f in its shortest round-trip form, keeping a ".0" on
// integral values (450000 becomes "450000.0").
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatArea renders an area with two decimals.
func formatArea(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultPtr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
