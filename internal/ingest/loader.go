// Package ingest reads the survey source file. Loading happens once at boot;
// any malformed row aborts the boot sequence rather than silently corrupting
// the dataset.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"surveyscope/internal/survey"
)

// expectedHeader is the exact source-file column order.
var expectedHeader = []string{"state", "gender", "age", "year", "employment_status", "wage"}

// LoadFile reads and parses the delimited source file at path.
func LoadFile(path string) ([]survey.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer func() { _ = f.Close() }()
	records, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return records, nil
}

// Load parses survey records from r. The first row must be the exact header
// state,gender,age,year,employment_status,wage; every subsequent row must
// carry six fields with numeric age and wage.
func Load(r io.Reader) ([]survey.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(expectedHeader)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty data file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range expectedHeader {
		if strings.TrimSpace(header[i]) != name {
			return nil, fmt.Errorf("unexpected header column %d: got %q want %q", i, header[i], name)
		}
	}

	var records []survey.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (survey.Record, error) {
	age, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return survey.Record{}, fmt.Errorf("non-numeric age %q", row[2])
	}
	wage, err := strconv.Atoi(strings.TrimSpace(row[5]))
	if err != nil {
		return survey.Record{}, fmt.Errorf("non-numeric wage %q", row[5])
	}
	return survey.Record{
		State:            strings.TrimSpace(row[0]),
		Gender:           strings.TrimSpace(row[1]),
		Age:              age,
		Year:             strings.TrimSpace(row[3]),
		EmploymentStatus: strings.TrimSpace(row[4]),
		Wage:             wage,
	}, nil
}
