// Package export renders filtered survey results into the supported download
// formats and runs the asynchronous export worker.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strconv"

	"surveyscope/internal/survey"

	"github.com/xuri/excelize/v2"
)

// Format identifies a rendering of a result set.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// SheetName is the single worksheet written into xlsx downloads.
const SheetName = "PLFS_Data"

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	case FormatHTML:
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat maps a request string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatXLSX, FormatJSON, FormatHTML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// row flattens a record into export column order.
func row(r survey.Record) []string {
	return []string{r.State, r.Gender, strconv.Itoa(r.Age), r.Year, r.EmploymentStatus, strconv.Itoa(r.Wage)}
}

// EncodeCSV writes the records as CSV in store order. An empty result set
// produces an empty payload with no header row.
func EncodeCSV(w io.Writer, records []survey.Record) error {
	if len(records) == 0 {
		return nil
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(survey.Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := writer.Write(row(r)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// EncodeJSON writes the records as a JSON array of objects. An empty result
// set encodes as [].
func EncodeJSON(w io.Writer, records []survey.Record) error {
	if records == nil {
		records = []survey.Record{}
	}
	return json.NewEncoder(w).Encode(records)
}

// EncodeXLSX writes a transient single-sheet workbook with the canonical
// header and one row per record.
func EncodeXLSX(w io.Writer, records []survey.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]any, len(survey.Columns))
	for i, c := range survey.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.State, r.Gender, r.Age, r.Year, r.EmploymentStatus, r.Wage}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// EncodeHTMLTable writes the records as a bare HTML table, used for export
// artifacts (the explore page goes through templates instead).
func EncodeHTMLTable(w io.Writer, records []survey.Record) error {
	if _, err := io.WriteString(w, "<table><thead><tr>"); err != nil {
		return err
	}
	for _, c := range survey.Columns {
		if _, err := fmt.Fprintf(w, "<th>%s</th>", c); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</tr></thead><tbody>"); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := io.WriteString(w, "<tr>"); err != nil {
			return err
		}
		for _, v := range row(r) {
			if _, err := fmt.Fprintf(w, "<td>%s</td>", html.EscapeString(v)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tr>"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</tbody></table>")
	return err
}
