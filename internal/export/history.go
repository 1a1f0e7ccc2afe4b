// Package export renders request history as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"carva/internal/domain"
)

const (
	historySheet = "History"
	headerRow    = 3
)

var historyColumns = []struct {
	label string
	width float64
	value func(req *domain.ActiveRequest) any
}{
	{"Request", 16, func(r *domain.ActiveRequest) any { return r.ID }},
	{"Date", 18, func(r *domain.ActiveRequest) any {
		return time.UnixMilli(r.Timestamp).UTC().Format("2006-01-02 15:04")
	}},
	{"Status", 16, func(r *domain.ActiveRequest) any { return string(r.Status) }},
	{"Owner", 18, func(r *domain.ActiveRequest) any { return r.Name }},
	{"Car", 18, func(r *domain.ActiveRequest) any {
		if r.Year != 0 {
			return fmt.Sprintf("%s %d", r.Car, r.Year)
		}
		return r.Car
	}},
	{"Destination", 24, func(r *domain.ActiveRequest) any { return r.DestName }},
	{"Driver", 18, func(r *domain.ActiveRequest) any { return r.DriverName }},
	{"Plate", 12, func(r *domain.ActiveRequest) any { return r.DriverPlate }},
	{"Trip Cost", 12, func(r *domain.ActiveRequest) any { return r.TripCost }},
	{"Bill Total", 12, func(r *domain.ActiveRequest) any { return r.BillTotal }},
	{"Paid", 8, func(r *domain.ActiveRequest) any {
		if r.IsPaid {
			return "yes"
		}
		return "no"
	}},
}

// HistoryWorkbook builds a workbook with one row per archived request,
// newest first as given.
func HistoryWorkbook(title string, requests []*domain.ActiveRequest, generated time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(historySheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	_ = f.SetCellValue(historySheet, "A1", title)
	_ = f.SetCellStyle(historySheet, "A1", "A1", titleStyle)
	_ = f.SetCellValue(historySheet, "A2", "Generated: "+generated.Format("2006-01-02 15:04:05"))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for col, column := range historyColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			return nil, err
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		_ = f.SetCellValue(historySheet, cell, column.label)
		_ = f.SetCellStyle(historySheet, cell, cell, headerStyle)
		_ = f.SetColWidth(historySheet, name, name, column.width)
	}

	for i, req := range requests {
		row := headerRow + 1 + i
		for col, column := range historyColumns {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(historySheet, cell, column.value(req)); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteHistory writes the history workbook as XLSX to w.
func WriteHistory(w io.Writer, title string, requests []*domain.ActiveRequest, generated time.Time) error {
	f, err := HistoryWorkbook(title, requests, generated)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteTo(w)
	return err
}
