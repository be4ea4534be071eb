package mapper

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/property-feed-converter/internal/types"
	"gopkg.in/yaml.v3"
)

// NoInformation is the placeholder used by the target schema for unknown
// enumerated values.
const NoInformation = "NO_INFORMATION"

//go:embed tables.yaml
var tablesYAML []byte

// lookupTables is the decoded form of tables.yaml.
type lookupTables struct {
	PropertyTypes   map[string]types.PropertyType `yaml:"property_types"`
	BuildingTypes   map[string]string             `yaml:"building_types"`
	RecommendedUses map[string]string             `yaml:"recommended_uses"`
	Regions         map[string]string             `yaml:"regions"`
}

// tables is loaded once at package initialization and never written again.
var tables = mustLoadTables(tablesYAML)

func mustLoadTables(data []byte) *lookupTables {
	t, err := loadTables(data)
	if err != nil {
		panic(err)
	}
	return t
}

func loadTables(data []byte) (*lookupTables, error) {
	var t lookupTables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse lookup tables: %w", err)
	}
	for label, pt := range t.PropertyTypes {
		if !pt.Valid() {
			return nil, fmt.Errorf("lookup tables: label %q maps to unknown type %q", label, pt)
		}
	}
	return &t, nil
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// ResolveType returns the target variant for a source type label.
func ResolveType(label string) (types.PropertyType, bool) {
	pt, ok := tables.PropertyTypes[normalizeLabel(label)]
	return pt, ok
}

// BuildingType returns the building or apartment sub-type for a source label,
// defaulting to NO_INFORMATION.
func BuildingType(label string) string {
	if v, ok := tables.BuildingTypes[normalizeLabel(label)]; ok {
		return v
	}
	return NoInformation
}

// RecommendedUse returns the recommended use of a tradeSite label,
// defaulting to NO_INFORMATION.
func RecommendedUse(label string) string {
	if v, ok := tables.RecommendedUses[normalizeLabel(label)]; ok {
		return v
	}
	return NoInformation
}

// RegionFor maps a province to its region label. Unknown provinces pass
// through unchanged and an empty province yields "Unknown".
func RegionFor(province string) string {
	province = strings.TrimSpace(province)
	if province == "" {
		return "Unknown"
	}
	if region, ok := tables.Regions[province]; ok {
		return region
	}
	return province
}

// SupportedLabels returns every known source type label, sorted.
func SupportedLabels() []string {
	labels := make([]string, 0, len(tables.PropertyTypes))
	for label := range tables.PropertyTypes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
