// Package receipt renders order receipts as PDF.
package receipt

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"aroma-order-service/internal/restaurant"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// Render lays out a single-page receipt for the order using the brand name
// and currency from settings.
func Render(settings restaurant.Settings, order restaurant.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle(fmt.Sprintf("%s order %d", settings.BrandName, order.ID), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(settings.BrandName), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Order #%d", order.ID), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, orderTypeLabel(order.Type), "", 1, "C", false, 0, "")
	if order.TableNumber != "" {
		pdf.CellFormat(0, 5, tr("Table "+order.TableNumber), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 5, "Placed: "+order.CreatedAt.UTC().Format(time.RFC1123), "", 1, "C", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, line := range order.Items {
		pdf.CellFormat(90, 5, tr(fmt.Sprintf("%dx %s", line.Quantity, line.Name)), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, FormatMoney(line.Subtotal(), settings.Currency), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 6, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, FormatMoney(order.Total, settings.Currency), "T", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	if order.PaymentMethod != "" {
		pdf.CellFormat(0, 5, tr("Payment: "+order.PaymentMethod), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, "Status: "+string(order.Status), "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("render receipt for order %d: %w", order.ID, err)
	}
	return out.Bytes(), nil
}

func orderTypeLabel(t restaurant.OrderType) string {
	if t == restaurant.OrderTypeDineIn {
		return "Dine-in"
	}
	return "Takeaway"
}

// FormatMoney prints an amount with two decimals after its currency code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", strings.ToUpper(currency), amount.StringFixed(2))
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Filename is the download name for an order's receipt.
func Filename(brand string, orderID int64) string {
	clean := strings.Trim(unsafeFilename.ReplaceAllString(brand, "_"), "_")
	if clean == "" {
		clean = "receipt"
	}
	return fmt.Sprintf("receipt_%s_%d.pdf", clean, orderID)
}
