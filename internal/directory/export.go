package directory

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/harentsoaR/clinic-api/internal/models"
)

const exportSheet = "Patients"

var exportHeaders = []string{
	"Name", "Email", "Phone", "Gender", "Blood Group", "Age", "Date of Birth",
	"Medical Conditions", "Allergies", "Registered",
}

// WriteXLSX writes patients as a single-sheet spreadsheet, one row per patient in list order.
func WriteXLSX(w io.Writer, patients []*models.Customer, now time.Time) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := file.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, p := range patients {
		dob := ""
		if p.DateOfBirth != nil {
			dob = p.DateOfBirth.Format("2006-01-02")
		}
		row := []any{
			p.FullName, p.Email, p.Phone, p.Gender, p.BloodGroup, Age(p.DateOfBirth, now), dob,
			p.MedicalConditions, p.Allergies, p.CreatedAt.Format("2006-01-02"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_, err := file.WriteTo(w)
	return err
}
