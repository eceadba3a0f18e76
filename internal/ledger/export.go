package ledger

import (
	"bytes"
	"fmt"

	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/xuri/excelize/v2"
)

const bonusSheet = "Monthly Bonus"

var bonusHeader = []string{
	models.ColumnAssociatedRepName,
	models.ColumnEntity,
	models.ColumnReimbursement,
	models.ColumnCOGS,
	models.ColumnNet,
	models.ColumnCommission,
}

// BonusWorkbook renders a monthly bonus summary as an xlsx document
func BonusWorkbook(title string, summaries []models.BonusSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(bonusSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetCellValue(bonusSheet, "A1", title); err != nil {
		return nil, err
	}
	for i, name := range bonusHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(bonusSheet, cell, name); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(bonusSheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for r, s := range summaries {
		values := []interface{}{s.AssociatedRepName, s.Entity, s.Reimbursement, s.COGS, s.Net, s.Commission}
		for c, value := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+3)
			if err := f.SetCellValue(bonusSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
