package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"testing"

	"surveyscope/internal/survey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixture = []survey.Record{
	{State: "CA", Gender: "F", Age: 30, Year: "2021", EmploymentStatus: "Employed", Wage: 50000},
	{State: "TX", Gender: "M", Age: 25, Year: "2021", EmploymentStatus: "Unemployed", Wage: 0},
	{State: "CA", Gender: "M", Age: 40, Year: "2020", EmploymentStatus: "Employed", Wage: 60000},
}

func TestEncodeCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, EncodeCSV(buf, fixture))

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, survey.Columns, rows[0])
	assert.Equal(t, []string{"CA", "F", "30", "2021", "Employed", "50000"}, rows[1])
}

func TestEncodeCSVEmptyProducesNoHeader(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, EncodeCSV(buf, nil))
	assert.Zero(t, buf.Len(), "empty result set must yield an empty payload")
}

func TestEncodeJSONEmptyIsArray(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, EncodeJSON(buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestCSVJSONRoundTripAgree(t *testing.T) {
	csvBuf := &bytes.Buffer{}
	require.NoError(t, EncodeCSV(csvBuf, fixture))
	jsonBuf := &bytes.Buffer{}
	require.NoError(t, EncodeJSON(jsonBuf, fixture))

	var fromJSON []survey.Record
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &fromJSON))

	rows, err := csv.NewReader(bytes.NewReader(csvBuf.Bytes())).ReadAll()
	require.NoError(t, err)
	fromCSV := make([]survey.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		age, err := strconv.Atoi(row[2])
		require.NoError(t, err)
		wage, err := strconv.Atoi(row[5])
		require.NoError(t, err)
		fromCSV = append(fromCSV, survey.Record{
			State: row[0], Gender: row[1], Age: age,
			Year: row[3], EmploymentStatus: row[4], Wage: wage,
		})
	}
	assert.Equal(t, fromJSON, fromCSV, "CSV and JSON exports must carry the same logical rows")
}

func TestEncodeXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, EncodeXLSX(buf, fixture))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, survey.Columns, rows[0])
	assert.Equal(t, []string{"TX", "M", "25", "2021", "Unemployed", "0"}, rows[2])
}

func TestEncodeHTMLTableEscapes(t *testing.T) {
	buf := &bytes.Buffer{}
	records := []survey.Record{{State: "<CA>", Gender: "F", Age: 1, Year: "2021", EmploymentStatus: "x&y", Wage: 2}}
	require.NoError(t, EncodeHTMLTable(buf, records))
	out := buf.String()
	assert.Contains(t, out, "&lt;CA&gt;")
	assert.Contains(t, out, "x&amp;y")
	assert.NotContains(t, out, "<CA>")
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"csv", "xlsx", "json", "html"} {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, Format(s), f)
	}
	_, err := ParseFormat("parquet")
	assert.Error(t, err)
}
