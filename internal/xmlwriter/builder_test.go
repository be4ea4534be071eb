package xmlwriter

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ginjaninja78/property-feed-converter/internal/mapper"
	"github.com/ginjaninja78/property-feed-converter/internal/source"
	"github.com/ginjaninja78/property-feed-converter/internal/types"
	"github.com/ginjaninja78/property-feed-converter/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }

func childText(e *XMLElement, name string) string {
	if c := e.Find(name); c != nil {
		return c.Value
	}
	return ""
}

func childNames(e *XMLElement) []string {
	names := make([]string, 0, len(e.Children))
	for _, c := range e.Children {
		names = append(names, c.XMLName.Local)
	}
	return names
}

func baseMapping(t types.PropertyType) *types.Mapping {
	return &types.Mapping{
		Type:          t,
		ExternalID:    str("X-1"),
		Title:         str("Plot in Ronda"),
		Street:        str("Street in Ronda"),
		HouseNumber:   "0",
		Postcode:      "29400",
		City:          str("ronda"),
		Country:       "ESP",
		Region:        "Andalusien",
		ShowAddress:   true,
		Value:         num(99000),
		Currency:      "EUR",
		MarketingType: "PURCHASE",
		HasCourtage:   "NOT_APPLICABLE",
		PlotArea:      num(500),
		LivingSpace:   num(80),
	}
}

func TestBuildDocument_VillaFromFeed(t *testing.T) {
	feed, err := source.Parse(strings.NewReader(`<root><property>
  <ref>V-1</ref>
  <type>villa</type>
  <town>marbella</town>
  <province>Málaga</province>
  <price>450000</price>
  <beds>3</beds>
  <baths>2</baths>
  <surface_area><built>120</built><plot>300</plot></surface_area>
</property></root>`))
	require.NoError(t, err)

	m, err := mapper.New(nil).MapProperty(&feed.Properties[0])
	require.NoError(t, err)

	doc, err := BuildDocument(m)
	require.NoError(t, err)
	require.NoError(t, CheckWellFormed(doc.XML))

	assert.Equal(t, types.HouseBuy, doc.Type)
	assert.Equal(t, "V-1", doc.ExternalID)
	assert.Empty(t, doc.Warnings)

	out := string(doc.XML)
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"))
	assert.Contains(t, out, `<realestates:houseBuy xmlns:realestates="`+NamespaceRealEstates+`"`)
	assert.Contains(t, out, "\n  <externalId>V-1</externalId>\n")
	assert.Contains(t, out, "<livingSpace>120.00</livingSpace>")
	assert.Contains(t, out, "<plotArea>300.00</plotArea>")
	assert.Contains(t, out, "<value>450000.0</value>")
	assert.Contains(t, out, "<region>Andalusien</region>")
	assert.Contains(t, out, "<city>Marbella</city>")
	assert.Contains(t, out, "<numberOfRooms>5</numberOfRooms>")
	assert.Contains(t, out, "<descriptionNote><![CDATA[Villa: No description provided]]></descriptionNote>")
	assert.NotContains(t, out, "wgs84Coordinate")

	assert.Equal(t, []string{
		"externalId", "title", "address", "descriptionNote", "showAddress",
		"buildingType", "numberOfBedRooms", "numberOfBathRooms", "price",
		"livingSpace", "plotArea", "numberOfRooms", "courtage",
	}, childNames(doc.Root))
}

func TestBuildDocument_ElementOrder(t *testing.T) {
	tests := []struct {
		variant types.PropertyType
		prepare func(m *types.Mapping)
		body    []string
	}{
		{
			variant: types.ApartmentBuy,
			prepare: func(m *types.Mapping) { m.ApartmentType = str("PENTHOUSE") },
			body:    []string{"apartmentType", "price", "livingSpace", "numberOfRooms", "courtage"},
		},
		{
			variant: types.LivingBuySite,
			prepare: func(m *types.Mapping) { m.CommercializationType = str("BUY") },
			body:    []string{"commercializationType", "price", "plotArea", "courtage"},
		},
		{
			variant: types.TradeSite,
			prepare: func(m *types.Mapping) {
				m.CommercializationType = str("LEASE")
				m.UtilizationTradeSite = str("LEISURE")
			},
			body: []string{"commercializationType", "utilizationTradeSite", "price", "plotArea", "courtage"},
		},
	}

	common := []string{"externalId", "title", "address", "descriptionNote", "showAddress"}
	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			m := baseMapping(tt.variant)
			tt.prepare(m)

			doc, err := BuildDocument(m)
			require.NoError(t, err)
			require.NoError(t, CheckWellFormed(doc.XML))
			assert.Equal(t, append(append([]string{}, common...), tt.body...), childNames(doc.Root))
			assert.Equal(t, "realestates:"+string(tt.variant), qualifiedName(doc.Root.XMLName))
		})
	}
}

func TestBuildDocument_MissingRequiredField(t *testing.T) {
	m := baseMapping(types.TradeSite)
	m.CommercializationType = str("BUY")
	m.UtilizationTradeSite = str("LEISURE")
	m.PlotArea = nil

	_, err := BuildDocument(m)
	var missing *validation.MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "plotArea", missing.Field)
	assert.Equal(t, "X-1", missing.ExternalID)

	house := baseMapping(types.HouseBuy)
	house.LivingSpace = nil
	_, err = BuildDocument(house)
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "livingSpace", missing.Field)
}

func TestBuildDocument_EnumFallback(t *testing.T) {
	m := baseMapping(types.TradeSite)
	m.CommercializationType = str("RENT_TO_OWN")
	m.UtilizationTradeSite = str("INDUSTRY")
	m.ListedOnlyOnIs24 = str("maybe")

	doc, err := BuildDocument(m)
	require.NoError(t, err)

	assert.Equal(t, "BUY", childText(doc.Root, "commercializationType"))
	assert.Equal(t, "NO_INFORMATION", childText(doc.Root, "utilizationTradeSite"))
	assert.Equal(t, "NO", childText(doc.Root, "listedOnlyOnIs24"))

	require.Len(t, doc.Warnings, 3)
	fields := map[string]string{}
	for _, w := range doc.Warnings {
		assert.Equal(t, "X-1", w.ExternalID)
		assert.Equal(t, validation.SeverityWarning, w.Severity)
		fields[w.Field] = w.Value
	}
	assert.Equal(t, "RENT_TO_OWN", fields["commercializationType"])
	assert.Equal(t, "INDUSTRY", fields["utilizationTradeSite"])
	assert.Equal(t, "maybe", fields["listedOnlyOnIs24"])
}

func TestBuildDocument_TradeSiteCourtageFee(t *testing.T) {
	m := baseMapping(types.TradeSite)
	m.CommercializationType = str("BUY")
	m.UtilizationTradeSite = str("LEISURE")
	m.HasCourtage = "YES"
	m.Courtage = str("3% + VAT")

	doc, err := BuildDocument(m)
	require.NoError(t, err)

	courtage := doc.Root.Find("courtage")
	require.NotNil(t, courtage)
	assert.Equal(t, []string{"hasCourtage", "courtage"}, childNames(courtage))
	assert.Contains(t, string(doc.XML), "<courtage>3% + VAT</courtage>")

	site := baseMapping(types.LivingBuySite)
	site.CommercializationType = str("BUY")
	site.Courtage = str("3%")
	doc, err = BuildDocument(site)
	require.NoError(t, err)
	assert.Equal(t, []string{"hasCourtage"}, childNames(doc.Root.Find("courtage")))
}

func TestBuildDocument_Coordinates(t *testing.T) {
	m := baseMapping(types.ApartmentBuy)
	m.Latitude = num(36.51)
	doc, err := BuildDocument(m)
	require.NoError(t, err)

	coordinate := doc.Root.Find("wgs84Coordinate")
	require.NotNil(t, coordinate)
	assert.Equal(t, []string{"latitude"}, childNames(coordinate))
	assert.Equal(t, "36.51", childText(coordinate, "latitude"))

	m.Latitude, m.Longitude = num(36), num(-4.88)
	doc, err = BuildDocument(m)
	require.NoError(t, err)
	assert.Equal(t, "36.0", childText(doc.Root, "latitude"))
	assert.Equal(t, "-4.88", childText(doc.Root, "longitude"))
}

func TestBuildDocument_Overflow(t *testing.T) {
	first := strings.Repeat("a", 1500)
	second := strings.Repeat("b", 800)
	third := strings.Repeat("c", 100)
	description := first + "\n\n" + second + "\n\n" + third

	m := baseMapping(types.ApartmentBuy)
	m.DescriptionNote = description
	m.OtherNote = str("replaced")
	m.LocationNote = str("Near the beach")

	doc, err := BuildDocument(m)
	require.NoError(t, err)
	require.NoError(t, CheckWellFormed(doc.XML))

	head := childText(doc.Root, "descriptionNote")
	other := childText(doc.Root, "otherNote")
	assert.Equal(t, first, head)
	assert.Equal(t, second+"\n\n"+third, other)
	assert.Equal(t, description, head+"\n\n"+other)
	assert.NotContains(t, string(doc.XML), "replaced")

	names := childNames(doc.Root)
	assert.Equal(t, []string{"descriptionNote", "locationNote", "otherNote", "showAddress"}, names[3:7])
}

func TestSplitDescription(t *testing.T) {
	short := "Villa: sea views\n\nPool"
	head, overflow := SplitDescription(short)
	assert.Equal(t, short, head)
	assert.Nil(t, overflow)

	exact := strings.Repeat("é", MaxNoteLength)
	head, overflow = SplitDescription(exact)
	assert.Equal(t, exact, head)
	assert.Nil(t, overflow)

	huge := strings.Repeat("x", 2500)
	head, overflow = SplitDescription(huge)
	assert.Empty(t, head)
	require.NotNil(t, overflow)
	assert.Equal(t, MaxNoteLength, utf8.RuneCountInString(*overflow))

	paragraphs := []string{strings.Repeat("a", 900), strings.Repeat("b", 900), strings.Repeat("c", 900), "d"}
	head, overflow = SplitDescription(strings.Join(paragraphs, "\n\n"))
	assert.Equal(t, paragraphs[0]+"\n\n"+paragraphs[1], head)
	require.NotNil(t, overflow)
	assert.Equal(t, paragraphs[2]+"\n\n"+paragraphs[3], *overflow)
	assert.LessOrEqual(t, utf8.RuneCountInString(head), MaxNoteLength)
}

func TestBuildDocument_EscapesNotes(t *testing.T) {
	m := baseMapping(types.HouseBuy)
	m.DescriptionNote = "House: a]]>b & <c>"
	m.FurnishingNote = str("Tom & Jerry ]]> end")
	m.Title = str("Villa <dream> & more")

	doc, err := BuildDocument(m)
	require.NoError(t, err)
	require.NoError(t, CheckWellFormed(doc.XML))

	out := string(doc.XML)
	assert.Contains(t, out, "<title>Villa &lt;dream&gt; &amp; more</title>")
	assert.Contains(t, out, "<![CDATA[House: a]]]]><![CDATA[>b & <c>]]>")
}

func TestBuildDocument_AllVariantsWellFormed(t *testing.T) {
	for _, variant := range types.PropertyTypes {
		t.Run(string(variant), func(t *testing.T) {
			m := baseMapping(variant)
			m.CommercializationType = str("BUY")
			m.UtilizationTradeSite = str("LEISURE")
			m.DescriptionNote = strings.Repeat("Sun & sea. ", 300)
			m.OtherNote = str("]]>")
			m.CreationDate = str("2024-01-01")

			doc, err := BuildDocument(m)
			require.NoError(t, err)
			assert.NoError(t, CheckWellFormed(doc.XML))
		})
	}
}

func TestNumberOfRooms(t *testing.T) {
	assert.Equal(t, 3, NumberOfRooms(str("3"), nil))
	assert.Equal(t, 5, NumberOfRooms(str(" 3 "), str("2")))
	assert.Equal(t, 2, NumberOfRooms(str("three"), str("2")))
	assert.Equal(t, 0, NumberOfRooms(nil, nil))
}

func TestBuildDocument_UnsupportedType(t *testing.T) {
	_, err := BuildDocument(&types.Mapping{Type: "castle"})
	assert.True(t, errors.Is(err, ErrUnsupportedType))

	_, err = BuildDocument(nil)
	assert.True(t, errors.Is(err, ErrUnsupportedType))

	b, ok := BuilderFor(types.HouseBuy)
	require.True(t, ok)
	_, err = b.Build(baseMapping(types.TradeSite))
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestCheckWellFormed(t *testing.T) {
	assert.NoError(t, CheckWellFormed([]byte(`<?xml version="1.0"?><a><b/></a>`)))
	assert.Error(t, CheckWellFormed([]byte(`<a><b></a>`)))
	assert.Error(t, CheckWellFormed([]byte(`<a/><b/>`)))
	assert.Error(t, CheckWellFormed([]byte(``)))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "450000.0", formatFloat(450000))
	assert.Equal(t, "1234.5", formatFloat(1234.5))
	assert.Equal(t, "-4.8858", formatFloat(-4.8858))
	assert.Equal(t, "0.10", formatArea(0.1))
}
