// README: XLSX export of verified deposits for waste bank staff.
package deposit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"kurs/internal/modules/role"
)

const (
	summarySheet = "Summary"
	detailSheet  = "Deposits"
	exportLimit  = 1000
)

// Export renders the deposits verified by the acting staff member as a workbook
// with a per-waste-type summary sheet and a detail sheet.
func (s *Service) Export(ctx context.Context, sess role.Session) ([]byte, error) {
	items, err := s.ListByStaff(ctx, sess, exportLimit)
	if err != nil {
		return nil, err
	}
	return renderWorkbook(string(sess.PrincipalID), s.now(), items)
}

func renderWorkbook(staffID string, generatedAt time.Time, items []Deposit) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	writeSummary(file, staffID, generatedAt, items)

	if _, err := file.NewSheet(detailSheet); err != nil {
		return nil, err
	}
	if err := writeDetail(file, items); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type wasteTotal struct {
	count    int
	weightKg float64
}

func writeSummary(file *excelize.File, staffID string, generatedAt time.Time, items []Deposit) {
	set := func(cell string, value any) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	totals := map[string]*wasteTotal{}
	var totalKg float64
	for _, d := range items {
		t := totals[d.WasteType]
		if t == nil {
			t = &wasteTotal{}
			totals[d.WasteType] = t
		}
		t.count++
		t.weightKg += d.WeightKg
		totalKg += d.WeightKg
	}
	kinds := make([]string, 0, len(totals))
	for k := range totals {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	set("A1", "Verified by")
	set("B1", staffID)
	set("A2", "Generated at")
	set("B2", generatedAt.UTC().Format(time.RFC3339))
	set("A3", "Deposits")
	set("B3", len(items))
	set("A4", "Total weight, kg")
	set("B4", roundKg(totalKg))

	const tableRow = 6
	set(fmt.Sprintf("A%d", tableRow), "Waste type")
	set(fmt.Sprintf("B%d", tableRow), "Deposits")
	set(fmt.Sprintf("C%d", tableRow), "Weight, kg")
	for i, k := range kinds {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), k)
		set(fmt.Sprintf("B%d", row), totals[k].count)
		set(fmt.Sprintf("C%d", row), roundKg(totals[k].weightKg))
	}

	_ = file.SetColWidth(summarySheet, "A", "A", 22)
	_ = file.SetColWidth(summarySheet, "B", "C", 26)
}

func writeDetail(file *excelize.File, items []Deposit) error {
	headers := []any{"Recorded at", "Depositor", "Waste type", "Weight, kg", "Facility", "Notes", "Deposit ID"}
	if err := file.SetSheetRow(detailSheet, "A1", &headers); err != nil {
		return err
	}
	for i, d := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			d.CreatedAt.UTC().Format("2006-01-02 15:04"),
			string(d.DepositorID),
			d.WasteType,
			roundKg(d.WeightKg),
			deref(d.FacilityID),
			deref(d.Notes),
			string(d.ID),
		}
		if err := file.SetSheetRow(detailSheet, cell, &row); err != nil {
			return err
		}
	}
	_ = file.SetColWidth(detailSheet, "A", "A", 18)
	_ = file.SetColWidth(detailSheet, "B", "B", 30)
	_ = file.SetColWidth(detailSheet, "G", "G", 38)
	return nil
}

func roundKg(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
