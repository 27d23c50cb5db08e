// Package report строит выгрузку реестра выданных нарядов в Excel.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"panchayat/models"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	registerSheet   = "Work orders"
)

var registerHeaders = []string{
	"Sl. No.", "Work serial", "Name of work", "NIT memo no.",
	"Work order memo no.", "Work order date", "Agency", "Bid amount (Rs.)", "Agreement no.",
}

// WorkOrderRegister возвращает книгу с одной строкой на каждый наряд и итогом по сумме
func WorkOrderRegister(rows []models.WorkOrderRegisterRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", registerSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, h := range registerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(registerSheet, cell, h)
		f.SetCellStyle(registerSheet, cell, cell, headerStyle)
	}

	for i, r := range rows {
		row := i + 2
		agreement := ""
		if r.AgreementNumber != nil {
			agreement = *r.AgreementNumber
		}
		amount, _ := r.BiddingAmount.Float64()

		f.SetCellValue(registerSheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(registerSheet, fmt.Sprintf("B%d", row), r.SerialNumber)
		f.SetCellValue(registerSheet, fmt.Sprintf("C%d", row), r.WorkName)
		f.SetCellValue(registerSheet, fmt.Sprintf("D%d", row), r.NitMemoNumber)
		f.SetCellValue(registerSheet, fmt.Sprintf("E%d", row), r.WorkOrderMemoNumber)
		f.SetCellValue(registerSheet, fmt.Sprintf("F%d", row), r.WorkOrderMemoDate.Format("02/01/2006"))
		f.SetCellValue(registerSheet, fmt.Sprintf("G%d", row), r.AgencyName)
		f.SetCellValue(registerSheet, fmt.Sprintf("H%d", row), amount)
		f.SetCellValue(registerSheet, fmt.Sprintf("I%d", row), agreement)
	}

	if len(rows) > 0 {
		totalRow := len(rows) + 2
		f.SetCellValue(registerSheet, fmt.Sprintf("G%d", totalRow), "Total")
		f.SetCellFormula(registerSheet, fmt.Sprintf("H%d", totalRow), fmt.Sprintf("SUM(H2:H%d)", totalRow-1))
	}
	f.SetColWidth(registerSheet, "C", "C", 40)
	f.SetColWidth(registerSheet, "G", "G", 28)

	return f, nil
}
