// Package export writes ranked grant records as JSON, CSV or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/grant-seeker/internal/model"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name, case-insensitively. An empty name
// means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatJSON
	}
}

var columns = []string{
	"ID", "Title", "Funder", "Deadline", "Amount", "Funding Nature", "Geography",
	"Fit Score", "Eligibility", "Tags", "Founder Demographics", "Description", "URL",
}

func row(r model.Record) []string {
	return []string{
		strconv.Itoa(r.ID),
		r.Title,
		r.Funder,
		r.Deadline,
		r.Amount,
		string(r.FundingNature),
		r.Geography,
		strconv.Itoa(r.FitScore),
		r.Eligibility,
		strings.Join(r.Tags, "; "),
		strings.Join(r.FounderDemographics, "; "),
		r.Description,
		r.URL,
	}
}

// Write encodes records to w. JSON output is the bare record array.
func Write(w io.Writer, format Format, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteFile creates path and writes records to it.
func WriteFile(path string, format Format, records []model.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := Write(f, format, records); err != nil {
		f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []model.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(records), "export: encode json")
}

// WriteCSV writes a header row and one row per record.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a single "Grants" sheet with a header row.
func WriteXLSX(w io.Writer, records []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Grants")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range columns {
		header.AddCell().SetString(c)
	}
	for _, r := range records {
		xr := sheet.AddRow()
		for i, v := range row(r) {
			cell := xr.AddCell()
			switch columns[i] {
			case "ID", "Fit Score":
				n, _ := strconv.Atoi(v)
				cell.SetInt(n)
			default:
				cell.SetString(v)
			}
		}
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}
