package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// decoderFunc turns a raw file buffer into loosely-typed rows.
type decoderFunc func(buf []byte) ([]RawRow, error)

// decoders maps a lowercased file extension to its decoder. Extensions not
// present here decode to an empty sequence rather than an error; callers are
// expected to have whitelisted extensions already.
var decoders = map[string]decoderFunc{
	".csv":  decodeCSV,
	".xlsx": decodeXLSX,
	".json": decodeJSON,
}

// Decode parses buf according to the declared file extension and returns its
// records in source order. An unsupported extension yields (nil, nil).
// Malformed content for a supported extension fails the whole call; there is
// no per-row skipping.
func Decode(buf []byte, ext string) ([]RawRow, error) {
	dec, ok := decoders[strings.ToLower(ext)]
	if !ok {
		return nil, nil
	}
	return dec(buf)
}

// decodeCSV reads the first line as header and keys every following record
// by it. Blank lines are skipped by the reader.
func decodeCSV(buf []byte) ([]RawRow, error) {
	r := csv.NewReader(bytes.NewReader(buf))
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	var rows []RawRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", len(rows)+1, err)
		}
		row := make(RawRow, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// decodeXLSX reads the first sheet only, keying each data row by the header
// row. Cells beyond the header width are dropped; missing trailing cells
// leave their keys absent.
func decodeXLSX(buf []byte) ([]RawRow, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	all, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	header := all[0]
	var rows []RawRow
	for _, rec := range all[1:] {
		if len(rec) == 0 {
			continue
		}
		row := make(RawRow, len(header))
		for i, col := range header {
			if i < len(rec) && rec[i] != "" {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// decodeJSON accepts either a top-level array of objects or an object with a
// "rows" array. Anything else decodes to an empty sequence.
func decodeJSON(buf []byte) ([]RawRow, error) {
	var v any
	if err := json.Unmarshal(buf, &v); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	switch t := v.(type) {
	case []any:
		return jsonRows(t), nil
	case map[string]any:
		if arr, ok := t["rows"].([]any); ok {
			return jsonRows(arr), nil
		}
	}
	return nil, nil
}

func jsonRows(arr []any) []RawRow {
	var rows []RawRow
	for _, el := range arr {
		if obj, ok := el.(map[string]any); ok {
			rows = append(rows, RawRow(obj))
		}
	}
	return rows
}
