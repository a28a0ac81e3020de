// Package export renders printable itineraries.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"wayfarer/models"
)

const (
	dateFormat = "Mon 2 Jan 2006"
	timeFormat = "15:04"
	qrSize     = 256
)

// PlanPDF lays out doc day by day with a QR code pointing at link.
func PlanPDF(doc *models.PlanDocument, link string) ([]byte, error) {
	qrPNG, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(doc.Name), false)
	pdf.AddPage()

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 10, 35, 35, false, imageOpts, 0, link)

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(140, 10, tr(doc.Name))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(140, 7, fmt.Sprintf("Plan #%d  |  %s to %s  |  %d day(s)",
		doc.PlanID, formatDate(doc.StartingDate), formatDate(doc.EndingDate), doc.DayCount))
	pdf.Ln(7)
	pdf.Cell(140, 7, fmt.Sprintf("Estimated cost: %.2f", doc.Cost))
	pdf.Ln(20)

	for _, day := range doc.DayList {
		pdf.SetFont("Arial", "B", 14)
		heading := fmt.Sprintf("Day %d - %s", day.Day, formatDate(day.Date))
		if day.Weather != "" {
			heading += fmt.Sprintf("  (%s, %.0f C)", day.Weather, day.Temperature)
		}
		pdf.Cell(0, 9, tr(heading))
		pdf.Ln(9)

		if len(day.Activities) == 0 {
			pdf.SetFont("Arial", "I", 11)
			pdf.Cell(0, 7, "Nothing planned")
			pdf.Ln(9)
			continue
		}
		for _, a := range day.Activities {
			writeActivity(pdf, tr, a, 0)
		}
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Day cost: %.2f", day.Cost))
		pdf.Ln(10)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeActivity(pdf *gofpdf.Fpdf, tr func(string) string, a models.ActivityDocument, depth int) {
	indent := 5.0 + 8.0*float64(depth)
	pdf.SetX(pdf.GetX() + indent)

	pdf.SetFont("Arial", "B", 11)
	line := fmt.Sprintf("%s-%s  %s [%s]",
		a.StartDateTime.UTC().Format(timeFormat), a.EndDateTime.UTC().Format(timeFormat), a.Name, a.Type)
	if a.IsVisited {
		line += "  (visited)"
	}
	pdf.Cell(0, 6, tr(line))
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	var details []string
	if a.Place != nil {
		details = append(details, a.Place.Name)
	}
	if a.Cost > 0 {
		details = append(details, fmt.Sprintf("%.2f", a.Cost))
	}
	if a.Description != "" {
		details = append(details, a.Description)
	}
	if len(details) > 0 {
		pdf.SetX(pdf.GetX() + indent + 4)
		pdf.MultiCell(0, 5, tr(strings.Join(details, " | ")), "", "L", false)
	}
	for _, sub := range a.SubActivities {
		writeActivity(pdf, tr, sub, depth+1)
	}
}

func formatDate(t models.FlexTime) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dateFormat)
}
