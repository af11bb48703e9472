// Package documents renders the club's PDFs: payment invoices and the
// welcome kit sent when a player becomes active.
package documents

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Club is printed in every document header.
type Club struct {
	Name    string
	Address string
	Email   string
}

// Invoice is the data printed on an invoice.
type Invoice struct {
	Number      string
	IssuedAt    time.Time
	BillToName  string
	BillToEmail string
	PlayerName  string
	TeamName    string
	Season      string
	Description string
	Amount      decimal.Decimal
	Currency    string
	Status      string
	PaidAt      *time.Time
	CheckoutRef string
}

// ScheduleItem is one upcoming event listed in a welcome kit.
type ScheduleItem struct {
	Kind     string
	Title    string
	Opponent string
	Location string
	StartsAt time.Time
	EndsAt   time.Time
}

// WelcomeKit is the data printed in a welcome kit.
type WelcomeKit struct {
	PlayerName   string
	TeamName     string
	Season       string
	Division     string
	JerseyNumber string
	JerseySize   string
	CoachEmail   string
	Schedule     []ScheduleItem
	GeneratedAt  time.Time
}

const (
	pageWidth   = 190.0 // Letter minus margins, mm
	dateLayout  = "Jan 2, 2006"
	eventLayout = "Mon Jan 2, 3:04 PM"
)

// RenderInvoice produces an invoice PDF.
func RenderInvoice(club Club, inv Invoice) ([]byte, error) {
	pdf, tr := newDocument(club, "Invoice "+inv.Number)

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(pageWidth, 10, "INVOICE", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(pageWidth, 5, tr("Invoice # "+inv.Number), "", 1, "R", false, 0, "")
	pdf.CellFormat(pageWidth, 5, "Issued "+inv.IssuedAt.Format(dateLayout), "", 1, "R", false, 0, "")
	pdf.Ln(8)

	section(pdf, "Bill to")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pageWidth, 6, tr(inv.BillToName), "", 1, "L", false, 0, "")
	if inv.BillToEmail != "" {
		pdf.CellFormat(pageWidth, 6, tr(inv.BillToEmail), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	section(pdf, "Player")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pageWidth, 6, tr(inv.PlayerName), "", 1, "L", false, 0, "")
	if inv.TeamName != "" {
		pdf.CellFormat(pageWidth, 6, tr(strings.TrimSpace(inv.TeamName+" "+inv.Season)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Line items
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(140, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 8, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	amount := fmt.Sprintf("%s %s", inv.Amount.StringFixed(2), strings.ToUpper(inv.Currency))
	pdf.CellFormat(140, 8, tr(inv.Description), "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, amount, "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(140, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 8, amount, "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	status := "Status: " + strings.ToUpper(inv.Status)
	if inv.PaidAt != nil {
		status += " on " + inv.PaidAt.Format(dateLayout)
	}
	pdf.CellFormat(pageWidth, 6, status, "", 1, "L", false, 0, "")
	if inv.CheckoutRef != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(pageWidth, 5, tr("Reference: "+inv.CheckoutRef), "", 1, "L", false, 0, "")
	}

	return output(pdf)
}

// RenderWelcomeKit produces a welcome kit PDF.
func RenderWelcomeKit(club Club, kit WelcomeKit) ([]byte, error) {
	pdf, tr := newDocument(club, "Welcome kit "+kit.PlayerName)

	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(pageWidth, 10, tr("Welcome, "+kit.PlayerName+"!"), "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(pageWidth, 6, tr(fmt.Sprintf(
		"You are registered with %s for the %s season. This kit has your team details and the upcoming schedule.",
		kit.TeamName, kit.Season)), "", "L", false)
	pdf.Ln(4)

	section(pdf, "Team")
	keyValue(pdf, tr, "Team", kit.TeamName)
	keyValue(pdf, tr, "Season", kit.Season)
	keyValue(pdf, tr, "Division", kit.Division)
	keyValue(pdf, tr, "Jersey number", kit.JerseyNumber)
	keyValue(pdf, tr, "Jersey size", kit.JerseySize)
	keyValue(pdf, tr, "Coach", kit.CoachEmail)
	pdf.Ln(4)

	section(pdf, "Upcoming schedule")
	if len(kit.Schedule) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(pageWidth, 6, "Your coach will share the schedule soon.", "", 1, "L", false, 0, "")
		return output(pdf)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(50, 7, "When", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(65, 7, "Event", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 7, "Location", "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, e := range kit.Schedule {
		title := e.Title
		if e.Opponent != "" {
			title += " vs " + e.Opponent
		}
		pdf.CellFormat(50, 7, e.StartsAt.Format(eventLayout), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, tr(e.Kind), "1", 0, "L", false, 0, "")
		pdf.CellFormat(65, 7, tr(truncate(title, 38)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, tr(truncate(e.Location, 28)), "1", 1, "L", false, 0, "")
	}
	return output(pdf)
}

func newDocument(club Club, title string) (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(13, 15, 13)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(title, true)
	pdf.SetAuthor(club.Name, true)
	pdf.SetCreator("courtside", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(pageWidth, 7, tr(club.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{club.Address, club.Email} {
		if line != "" {
			pdf.CellFormat(pageWidth, 4.5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)
	return pdf, tr
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(pageWidth, 7, title, "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func keyValue(pdf *fpdf.Fpdf, tr func(string) string, key, value string) {
	if value == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(40, 6, key, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pageWidth-40, 6, tr(value), "", 1, "L", false, 0, "")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
