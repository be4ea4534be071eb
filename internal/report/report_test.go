package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/property-feed-converter/pkg/utils"
)

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	path, err := WriteXLSX(utils.ProcessingSummary{
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
		InputFile: "input/feed.xml",
		Total:     2,
		Mapped:    2,
		Generated: 1,
		Sent:      1,
		Failed:    1,
		Documents: []utils.GeneratedListingInfo{{ExternalID: "V-1", Type: "houseBuy", OutputFile: "out/transformed_V-1.xml", Sent: true}},
		Failures:  []utils.FailedListingInfo{{ExternalID: "T-1", Stage: "build", ErrorMessage: "required field plotArea is missing"}},
	}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run_report_20240501_100000.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ListingsSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(ListingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"External ID", "Type", "Status", "Output File", "Sent", "Message"}, rows[0])
	assert.Equal(t, []string{"V-1", "houseBuy", "generated", "out/transformed_V-1.xml", "TRUE"}, rows[1])
	assert.Equal(t, "T-1", rows[2][0])
	assert.Equal(t, "failed (build)", rows[2][2])
	assert.Equal(t, "required field plotArea is missing", rows[2][5])

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	values := map[string]string{}
	for _, row := range summary {
		require.Len(t, row, 2)
		values[row[0]] = row[1]
	}
	assert.Equal(t, "input/feed.xml", values["Input File"])
	assert.Equal(t, "2s", values["Duration"])
	assert.Equal(t, "1", values["Generated"])
	assert.Equal(t, "1", values["Failed"])
}
