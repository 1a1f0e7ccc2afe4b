package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"carva/internal/domain"
)

func TestHistoryWorkbook(t *testing.T) {
	t.Parallel()

	requests := []*domain.ActiveRequest{
		{
			ID: 1700000000000, Timestamp: 1700000000000, Status: domain.StatusCompleted,
			Name: "Sara", Car: "Camry", Year: 2020, DestName: "Fast Fix",
			DriverName: "Ali", DriverPlate: "ABC 123", TripCost: 23, IsPaid: true,
		},
		{
			ID: 1700000100000, Timestamp: 1700000100000, Status: domain.StatusCompleted,
			Name: "Nora", Car: "Civic", DestName: "Fast Fix", BillTotal: 150, CanDrive: true,
		},
	}

	f, err := HistoryWorkbook("Order history", requests, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		t.Error("expected default sheet to be removed")
	}

	testCases := []struct {
		cell string
		want string
	}{
		{"A1", "Order history"},
		{"A2", "Generated: 2024-01-02 03:04:05"},
		{"A3", "Request"},
		{"K3", "Paid"},
		{"C4", "completed"},
		{"E4", "Camry 2020"},
		{"I4", "23"},
		{"K4", "yes"},
		{"E5", "Civic"},
		{"J5", "150"},
		{"K5", "no"},
	}
	for _, tc := range testCases {
		got, err := f.GetCellValue(historySheet, tc.cell)
		if err != nil {
			t.Fatalf("read %s: %v", tc.cell, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.cell, tc.want, got)
		}
	}
}

func TestWriteHistory_ProducesWorkbook(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteHistory(&buf, "Empty", nil, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()

	if got, _ := f.GetCellValue(historySheet, "A1"); got != "Empty" {
		t.Errorf("expected title, got %q", got)
	}
	if got, _ := f.GetCellValue(historySheet, "A4"); got != "" {
		t.Errorf("expected no data rows, got %q", got)
	}
}
