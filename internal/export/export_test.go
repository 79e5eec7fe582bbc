package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/grant-seeker/internal/model"
)

func sampleRecords() []model.Record {
	r := model.Record{
		ID:            1,
		Title:         "Community Garden Grant",
		Funder:        "Green Canada Fund",
		Deadline:      "2099-06-30",
		Amount:        "Up to $10,000",
		Tags:          []string{"garden", "community"},
		URL:           "https://greenfund.ca/gardens",
		FundingNature: model.FundingGrant,
		Geography:     "Canada",
		FitScore:      82,
	}
	r.Normalize()
	return []model.Record{r}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFromPath("out/grants.CSV"))
	assert.Equal(t, FormatXLSX, FormatFromPath("grants.xlsx"))
	assert.Equal(t, FormatJSON, FormatFromPath("grants"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleRecords()))

	var got []model.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
	assert.Contains(t, buf.String(), `"fit_score": 82`)
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, columns, rows[0])
	assert.Equal(t, "Community Garden Grant", rows[1][1])
	assert.Equal(t, "garden; community", rows[1][9])
	assert.Equal(t, "https://greenfund.ca/gardens", rows[1][12])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleRecords()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet["Grants"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Title", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "82", sheet.Rows[1].Cells[7].String())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.csv")
	require.NoError(t, WriteFile(path, FormatFromPath(path), sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Green Canada Fund")
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("yaml"), nil)
	assert.Error(t, err)
}
