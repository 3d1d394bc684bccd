// Package invoice renders booking invoices as PDF.
package invoice

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"movment/config"
	"movment/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// standardRows are always listed; booked services not covered by one are appended.
var standardRows = []string{
	"Venue Arrangement",
	"Decoration",
	"Catering",
	"Sound & Lighting",
	"Photography / Videography",
	"Event Management Fee",
}

// Data is everything printed on one invoice.
type Data struct {
	Event    models.Event
	Client   models.User
	Manager  *models.User
	Payments []models.Payment
}

// Number derives the invoice number from the event id.
func Number(eventID primitive.ObjectID) string {
	hex := eventID.Hex()
	return "INV-" + strings.ToUpper(hex[len(hex)-8:])
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// safe flattens text for the core PDF fonts. Blank values print as "-".
func safe(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\t", " ", "—", "-", "–", "-").Replace(s)
	s = strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
	if s == "" {
		return "-"
	}
	return s
}

func serviceRows(ev models.Event) []string {
	rows := append([]string{}, standardRows...)
	for _, sr := range ev.AdditionalServices {
		label := strings.TrimSpace(sr.Service)
		if label == "" {
			continue
		}
		covered := false
		for _, std := range standardRows {
			if strings.Contains(strings.ToLower(std), strings.ToLower(label)) {
				covered = true
				break
			}
		}
		if !covered {
			rows = append(rows, label)
		}
	}
	return rows
}

func paidTotal(payments []models.Payment) float64 {
	var total float64
	for _, p := range payments {
		if p.Status == models.PaymentCompleted {
			total += p.Amount - p.RefundedAmount
		}
	}
	return total
}

// Render writes the invoice PDF for d to w.
func Render(w io.Writer, d Data, cfg config.InvoiceConfig, now time.Time) error {
	number := Number(d.Event.ID)
	qrPNG, err := qrcode.Encode(number+"|"+d.Event.ID.Hex(), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()

	line := func(label, value string) {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(51, 51, 51)
		pdf.CellFormat(62, 5, safe(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, safe(value), "", 1, "L", false, 0, "")
	}
	section := func(title string) {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 7, safe(title), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(0, 9, "Event Management Invoice", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, safe(cfg.CompanyName), "", 1, "L", false, 0, "")
	line("Address:", cfg.CompanyAddress)
	if cfg.CompanyPhone != "" {
		line("Phone:", cfg.CompanyPhone)
	}
	line("Email:", cfg.CompanyEmail)
	if cfg.GSTTaxID != "" {
		line("GST / Tax ID:", cfg.GSTTaxID)
	}

	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 16, 32, 32, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	const dateLayout = "02 Jan 2006"
	section("Invoice Number: " + number)
	line("Invoice Date:", now.Format(dateLayout))
	line("Due Date:", now.AddDate(0, 0, cfg.PaymentDays).Format(dateLayout))

	loc := d.Event.Location
	section("Bill To (Client Details)")
	line("Client Name:", d.Client.Name)
	line("Address:", joinNonEmpty(", ", loc.AddressLine, loc.City, loc.Pincode))
	line("Phone:", d.Client.Phone)
	line("Email:", d.Client.Email)

	where := joinNonEmpty(", ", loc.AddressLine, loc.City)
	if d.Event.Venue != "" {
		where = joinNonEmpty(", ", d.Event.Venue, loc.City)
	}
	section("Event Details")
	line("Event Name:", d.Event.Title)
	line("Event Type:", d.Event.Type)
	line("Event Date:", d.Event.ScheduledAt.Format(dateLayout))
	line("Guests:", fmt.Sprint(d.Event.GuestCount))
	line("Event Location:", where)
	if d.Manager != nil {
		line("Event Manager:", d.Manager.Name)
	}

	section("Services & Charges")
	widths := []float64{12, 86, 16, 32, 28}
	pdf.SetFont("Helvetica", "B", 8)
	for i, h := range []string{"No.", "Description of Service", "Qty", "Rate", "Amount"} {
		pdf.CellFormat(widths[i], 6, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for i, desc := range serviceRows(d.Event) {
		cells := []string{fmt.Sprint(i + 1), safe(desc), "1", "As per quote", "-"}
		for j, c := range cells {
			pdf.CellFormat(widths[j], 6, c, "", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
	pdf.CellFormat(widths[0], 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(widths[1]+widths[2]+widths[3], 6, "Total Amount", "T", 0, "L", false, 0, "")
	pdf.CellFormat(widths[4], 6, "-", "T", 1, "L", false, 0, "")
	if paid := paidTotal(d.Payments); paid > 0 {
		pdf.CellFormat(widths[0], 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1]+widths[2]+widths[3], 6, "Advance received", "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%s %.2f", models.DefaultCurrency, paid), "", 1, "L", false, 0, "")
	}

	section("Payment Details")
	line("Bank Name:", cfg.BankName)
	line("Account Name:", cfg.AccountName)
	line("Account Number:", cfg.AccountNumber)
	line("IFSC / SWIFT:", cfg.IFSCSwift)
	line("Payment Method:", "Bank Transfer / Cash / Online")

	section("Notes / Terms")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Payment due within %d days.", cfg.PaymentDays), "", 1, "L", false, 0, "")
	pdf.Ln(8)
	pdf.CellFormat(0, 5, "Authorized Signature:", "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Event Manager / Company Seal", "", 1, "L", false, 0, "")

	return pdf.Output(w)
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
