package validation

import (
	"errors"
	"testing"

	"github.com/ginjaninja78/property-feed-converter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireFields(t *testing.T) {
	id, title, value := "T-1", "Shop in Ronda", 1000.0
	m := &types.Mapping{
		Type:       types.TradeSite,
		ExternalID: &id,
		Title:      &title,
		Value:      &value,
	}

	require.NoError(t, RequireFields(m, []string{"externalId", "title", "value"}))

	err := RequireFields(m, []string{"externalId", "plotArea", "commercializationType"})
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "plotArea", missing.Field)
	assert.Equal(t, "T-1", missing.ExternalID)
	assert.Equal(t, types.TradeSite, missing.Variant)
	assert.Contains(t, err.Error(), "plotArea")

	finding := missing.Finding()
	assert.Equal(t, SeverityError, finding.Severity)
	assert.Equal(t, "required", finding.Rule)
	assert.Equal(t, "[ERROR] Listing T-1, Field 'plotArea': required for tradeSite (value: '')", finding.Error())
}

func TestRequireFields_UnknownID(t *testing.T) {
	err := RequireFields(&types.Mapping{Type: types.HouseBuy}, []string{"externalId"})
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "unknown", missing.ExternalID)
}

func TestNormalizeEnum(t *testing.T) {
	tests := []struct {
		field   string
		value   string
		want    string
		warning bool
	}{
		{"commercializationType", "BUY", "BUY", false},
		{"commercializationType", "LEASE", "LEASE", false},
		{"commercializationType", "RENT_TO_OWN", "BUY", true},
		{"utilizationTradeSite", "LEISURE", "LEISURE", false},
		{"utilizationTradeSite", "INDUSTRY", "NO_INFORMATION", true},
		{"listedOnlyOnIs24", "NOT_APPLICABLE", "NOT_APPLICABLE", false},
		{"listedOnlyOnIs24", "maybe", "NO", true},
		{"currency", "anything", "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.value, func(t *testing.T) {
			got, warning := NormalizeEnum(tt.field, tt.value)
			assert.Equal(t, tt.want, got)
			if tt.warning {
				require.NotNil(t, warning)
				assert.Equal(t, SeverityWarning, warning.Severity)
				assert.Equal(t, tt.value, warning.Value)
				assert.Equal(t, tt.field, warning.Field)
			} else {
				assert.Nil(t, warning)
			}
		})
	}
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	_, w := NormalizeEnum("commercializationType", "RENT")
	w.ExternalID = "X-1"
	out := FormatErrors([]*ValidationError{w})
	assert.Contains(t, out, "1 finding(s)")
	assert.Contains(t, out, "[WARNING] Listing X-1, Field 'commercializationType'")
}
