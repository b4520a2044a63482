// Package dataset loads the patient table the classifier is fitted on.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var (
	ErrMissingColumn  = errors.New("missing required column")
	ErrMalformedValue = errors.New("malformed value")
	ErrEmptyFile      = errors.New("empty file")
)

const DefaultEncoding = "utf-8"

// ReadCSV parses a comma-separated patient table. encoding is a WHATWG label
// ("utf-8", "gbk", "windows-1252", ...); an empty label means UTF-8.
func ReadCSV(r io.Reader, encoding string) (*Table, error) {
	decoded, err := decodeReader(r, encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	rows := make([]Patient, 0)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}
		patient, err := parseRecord(record, index, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, patient)
	}

	return NewTable(rows), nil
}

func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", encoding, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	for _, column := range Columns {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
	}
	return index, nil
}

func parseRecord(record []string, index map[string]int, line int) (Patient, error) {
	values := make([]float64, len(FeatureColumns))
	for i, column := range FeatureColumns {
		cell, err := cellAt(record, index[column], column, line)
		if err != nil {
			return Patient{}, err
		}
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return Patient{}, fmt.Errorf("%w: row %d column %s: %q", ErrMalformedValue, line, column, cell)
		}
		values[i] = value
	}

	disease, err := cellAt(record, index[ColumnDisease], ColumnDisease, line)
	if err != nil {
		return Patient{}, err
	}
	if disease == "" {
		return Patient{}, fmt.Errorf("%w: row %d column %s is empty", ErrMalformedValue, line, ColumnDisease)
	}

	return Patient{
		Age:     values[0],
		Fever:   values[1],
		BP:      values[2],
		Sugar:   values[3],
		Disease: disease,
	}, nil
}

func cellAt(record []string, idx int, column string, line int) (string, error) {
	if idx >= len(record) {
		return "", fmt.Errorf("%w: row %d has no %s field", ErrMalformedValue, line, column)
	}
	return strings.TrimSpace(record[idx]), nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
