package ingest

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDecodeCSV(t *testing.T) {
	buf := []byte("date,revenue,expenses,cash_in,cash_out\n" +
		"2024-01-01,1000,400,1000,400\n" +
		"\n" +
		"2024-01-02,1200,500,1200,500\n")
	rows, err := Decode(buf, ".csv")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["date"] != "2024-01-01" || rows[1]["date"] != "2024-01-02" {
		t.Fatalf("rows out of source order: %v", rows)
	}
	if rows[0]["revenue"] != "1000" {
		t.Fatalf("expected revenue 1000, got %v", rows[0]["revenue"])
	}
}

func TestDecodeCSVMalformed(t *testing.T) {
	buf := []byte("a,b\n1,2,3\n")
	if _, err := Decode(buf, ".csv"); err == nil {
		t.Fatal("expected error for ragged csv record")
	}
}

func TestDecodeCSVEmpty(t *testing.T) {
	rows, err := Decode(nil, ".csv")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestDecodeJSONArray(t *testing.T) {
	buf := []byte(`[{"channel":"ads","spend":50},{"channel":"email","spend":10}]`)
	rows, err := Decode(buf, ".json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["channel"] != "ads" {
		t.Fatalf("expected ads first, got %v", rows[0]["channel"])
	}
}

func TestDecodeJSONRowsField(t *testing.T) {
	buf := []byte(`{"rows":[{"channel":"ads","campaign":"spring","spend":"50","impressions":"1000","clicks":"20"}]}`)
	rows, err := Decode(buf, ".json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["campaign"] != "spring" {
		t.Fatalf("expected campaign spring, got %v", rows[0]["campaign"])
	}
}

func TestDecodeJSONObjectWithoutRows(t *testing.T) {
	rows, err := Decode([]byte(`{"data":[1,2]}`), ".json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{"rows":`), ".json"); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	header := []any{"date", "revenue", "expenses", "cash_in", "cash_out"}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatalf("set header: %v", err)
	}
	row := []any{"2024-01-01", 1000, 400, 1000, 400}
	if err := f.SetSheetRow("Sheet1", "A2", &row); err != nil {
		t.Fatalf("set row: %v", err)
	}
	wb, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rows, err := Decode(wb.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["date"] != "2024-01-01" {
		t.Fatalf("expected date 2024-01-01, got %v", rows[0]["date"])
	}
	if rows[0]["revenue"] != "1000" {
		t.Fatalf("expected revenue 1000, got %v", rows[0]["revenue"])
	}
}

func TestDecodeXLSXMalformed(t *testing.T) {
	if _, err := Decode([]byte("not a zip archive"), ".xlsx"); err == nil {
		t.Fatal("expected error for malformed xlsx")
	}
}

func TestDecodeUnsupportedExtension(t *testing.T) {
	rows, err := Decode([]byte("%PDF-1.4 ..."), ".pdf")
	if err != nil {
		t.Fatalf("unsupported extension must not error, got %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty sequence, got %d rows", len(rows))
	}
}
