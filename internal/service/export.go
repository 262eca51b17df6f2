package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"barbershop/internal/models"

	"github.com/xuri/excelize/v2"
)

// ExportReservations writes every reservation in [startDate, endDate] to an
// Excel file under exportDir and returns the file path.
func (s *ReservationService) ExportReservations(ctx context.Context, startDate, endDate time.Time, exportDir string) (string, error) {
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	reservations, err := s.store.ListReservations(ctx, models.ReservationFilter{
		DateFrom: startDate,
		DateTo:   endDate,
	})
	if err != nil {
		return "", fmt.Errorf("error getting reservations: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Reservations"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format(models.DateFormat), endDate.Format(models.DateFormat)))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	headers := []string{"Date", "Start", "End", "Client", "Phone", "Barber", "Services", "Status", "Duration (min)", "Price"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, r := range reservations {
		values := []any{
			r.Date.Format(models.DateFormat),
			r.StartTime,
			r.EndTime,
			r.ClientName,
			r.ClientPhone,
			r.BarberName,
			strings.Join(r.ServiceNames(), ", "),
			r.Status,
			r.TotalDuration,
			r.TotalPrice,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+3)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	filename := fmt.Sprintf("reservations_%s_%s.xlsx",
		startDate.Format(models.DateFormat), endDate.Format(models.DateFormat))
	path := filepath.Join(exportDir, filename)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving export file: %w", err)
	}
	return path, nil
}
