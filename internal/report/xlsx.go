package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"motorpass/internal/roster"
)

const userSheet = "User Report"

var userHeader = []string{
	"User ID", "Name", "Type", "Details", "Plate Number",
	"Currently Inside", "Total Activities", "Last Activity",
}

// BuildUserReportXLSX renders the user directory as a styled workbook:
// merged title block, filled header row, alternating data rows, sized
// columns, landscape A4. The caller owns closing the returned file.
func BuildUserReportXLSX(entries []roster.DirectoryEntry, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", userSheet); err != nil {
		return nil, err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(userHeader))

	// Title block: rows 1-2 title/subtitle, rows 4-5 metadata, row 7
	// the column header, data from row 8.
	setRow := func(row int, values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(userSheet, cell, &values)
	}
	if err := setRow(1, []any{"MotorPass System"}); err != nil {
		return nil, err
	}
	if err := setRow(2, []any{"User Report"}); err != nil {
		return nil, err
	}
	if err := setRow(4, []any{"Generated on: " + generatedAt.Format("01/02/2006, 03:04:05 PM")}); err != nil {
		return nil, err
	}
	if err := setRow(5, []any{fmt.Sprintf("Total Users: %d", len(entries))}); err != nil {
		return nil, err
	}
	header := make([]any, len(userHeader))
	for i, h := range userHeader {
		header[i] = h
	}
	if err := setRow(7, header); err != nil {
		return nil, err
	}
	for i, e := range entries {
		last := "Never"
		if e.LastActivity.Present {
			last = FormatInstant(e.LastActivity)
		}
		inside := "No"
		if e.CurrentlyInside {
			inside = "Yes"
		}
		row := []any{e.ID, e.Name, e.Type.Display(), e.Details, e.PlateNumber, inside, e.TotalActivities, last}
		if err := setRow(8+i, row); err != nil {
			return nil, err
		}
	}

	for _, row := range []int{1, 2, 4, 5} {
		if err := f.MergeCell(userSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row)); err != nil {
			return nil, err
		}
	}

	if err := applyUserStyles(f, lastCol, len(entries)); err != nil {
		return nil, err
	}

	widths := []float64{20, 36, 12, 25, 16, 16, 18, 24}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(userSheet, col, col, w); err != nil {
			return nil, err
		}
	}

	orientation := "landscape"
	paperA4 := 9
	if err := f.SetPageLayout(userSheet, &excelize.PageLayoutOptions{
		Orientation: &orientation,
		Size:        &paperA4,
	}); err != nil {
		return nil, err
	}
	return f, nil
}

func applyUserStyles(f *excelize.File, lastCol string, dataRows int) error {
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 18, Color: "1F4E78"},
		Alignment: center,
	})
	if err != nil {
		return err
	}
	subtitle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: center,
	})
	if err != nil {
		return err
	}
	meta, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: "555555"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	head, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: center,
		Border:    thinBorder("000000"),
	})
	if err != nil {
		return err
	}
	cell, err := f.NewStyle(&excelize.Style{
		Alignment: center,
		Border:    thinBorder("DDDDDD"),
	})
	if err != nil {
		return err
	}
	altCell, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F9F9F9"}},
		Alignment: center,
		Border:    thinBorder("DDDDDD"),
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(userSheet, "A1", lastCol+"1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(userSheet, "A2", lastCol+"2", subtitle); err != nil {
		return err
	}
	if err := f.SetCellStyle(userSheet, "A4", lastCol+"5", meta); err != nil {
		return err
	}
	if err := f.SetCellStyle(userSheet, "A7", lastCol+"7", head); err != nil {
		return err
	}
	for i := 0; i < dataRows; i++ {
		row := 8 + i
		style := cell
		if i%2 == 1 {
			style = altCell
		}
		err := f.SetCellStyle(userSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), style)
		if err != nil {
			return err
		}
	}
	return nil
}

func thinBorder(color string) []excelize.Border {
	sides := []string{"top", "bottom", "left", "right"}
	borders := make([]excelize.Border, 0, len(sides))
	for _, s := range sides {
		borders = append(borders, excelize.Border{Type: s, Color: color, Style: 1})
	}
	return borders
}
