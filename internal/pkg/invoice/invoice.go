// Package invoice renders order invoices as PDF documents.
package invoice

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Document is everything printed on an invoice. Money is in whole
// currency units.
type Document struct {
	Number    string
	IssuedAt  time.Time
	Seller    string
	Currency  string
	PaymentID string

	BillTo []string
	Lines  []Line

	Subtotal       int64
	DeliveryFee    int64
	CouponDiscount int64
	CoinsApplied   int64
	CoinDiscount   int64
	Total          int64
}

type Line struct {
	Description string
	Quantity    int
	UnitPrice   int64
	Total       int64
}

// Render lays out doc on a single A4 page, adding pages as the item table grows
func Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+doc.Number, true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, tr(doc.Seller))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "INVOICE")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(95, 7, "Invoice No: "+doc.Number)
	pdf.Cell(95, 7, "Date: "+doc.IssuedAt.Format("2006-01-02"))
	pdf.Ln(7)
	if doc.PaymentID != "" {
		pdf.Cell(95, 7, "Payment Ref: "+doc.PaymentID)
		pdf.Ln(7)
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(100, 7, "Ship To:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 11)
	for _, line := range doc.BillTo {
		if line == "" {
			continue
		}
		pdf.Cell(100, 6, tr(line))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, "Item", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Price", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	for _, l := range doc.Lines {
		pdf.CellFormat(90, 8, tr(l.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, strconv.Itoa(l.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, money(l.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, money(l.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	totalRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 11)
		pdf.CellFormat(145, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, value, "", 1, "R", false, 0, "")
	}
	totalRow("Subtotal:", money(doc.Subtotal), false)
	totalRow("Delivery:", money(doc.DeliveryFee), false)
	if doc.CouponDiscount > 0 {
		totalRow("Coupon discount:", "-"+money(doc.CouponDiscount), false)
	}
	if doc.CoinsApplied > 0 {
		totalRow(fmt.Sprintf("Coins redeemed (%d):", doc.CoinsApplied), "-"+money(doc.CoinDiscount), false)
	}
	totalRow("Total ("+doc.Currency+"):", money(doc.Total), true)

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 10)
	pdf.Cell(0, 8, "Thank you for shopping with "+tr(doc.Seller)+".")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v int64) string {
	return strconv.FormatInt(v, 10) + ".00"
}
