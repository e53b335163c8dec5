// Package export renders a single treatment record into a downloadable PDF.
// Rendering is local and deterministic in its two inputs (plus the wall-clock
// generated-at stamp in the header); no network call is made and neither
// input is mutated.
package export

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/medvault/medvault/internal/platform/api"
)

const dateLayout = "2006-01-02"

// Render produces the PDF document for one treatment of one patient.
func Render(treatment api.Treatment, patient api.PatientProfile) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 70, 90)
	pdf.CellFormat(0, 10, "MedVault - Treatment Record", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", time.Now().Format(dateLayout)), "", 1, "C", false, 0, "")

	// Patient section
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Patient", "1", 1, "C", false, 0, "")
	addDetail(pdf, "Name", patient.Name)
	addDetail(pdf, "National ID", patient.CNIC)
	addDetail(pdf, "Email", patient.Email)

	// Treatment section. The DATE field is the treatment's own timestamp,
	// not the export time.
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Treatment", "1", 1, "C", false, 0, "")
	addDetail(pdf, "Record ID", treatment.ID)
	addDetail(pdf, "Date", treatment.CreatedAt.Format(dateLayout))
	addDetail(pdf, "Doctor", treatment.DoctorName)
	addDetail(pdf, "Diagnosis", treatment.Diagnosis)
	addDetail(pdf, "Medication", treatment.Medication)
	if treatment.Notes != "" {
		addDetail(pdf, "Notes", treatment.Notes)
	}

	// Attachments section, omitted entirely when there are none.
	if len(treatment.Files) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 10, "Attachments", "1", 1, "C", false, 0, "")
		for _, f := range treatment.Files {
			addDetail(pdf, f.Type, f.Name)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders the document and writes it to path.
func WriteFile(path string, treatment api.Treatment, patient api.PatientProfile) error {
	data, err := Render(treatment, patient)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// addDetail writes one label/value row.
func addDetail(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 8, label, "1", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, value, "1", 1, "L", false, 0, "")
}
