package notify

import (
	"strings"

	"golang.org/x/text/message"

	"github.com/atlas-wms/atlas-wms/internal/purchase"
	"github.com/atlas-wms/atlas-wms/internal/sales"
)

func purchaseCreatedEmail(p *message.Printer, order purchase.Order, items []purchase.Item) (string, string) {
	var b strings.Builder
	b.WriteString(p.Sprintf("Purchase order %s for %s has been created.\n\n", order.Number, order.VendorName))
	var total float64
	for _, item := range items {
		lineTotal := float64(item.Quantity) * item.UnitPrice
		total += lineTotal
		b.WriteString(p.Sprintf("- %s (SKU %s): %d x %.2f = %.2f\n", item.ProductName, item.ProductSKU, item.Quantity, item.UnitPrice, lineTotal))
	}
	b.WriteString(p.Sprintf("\nOrder total: %.2f\n", total))
	return p.Sprintf("Purchase order %s created", order.Number), b.String()
}

func purchaseReceivedEmail(p *message.Printer, order purchase.Order, items []purchase.Item) (string, string) {
	var b strings.Builder
	b.WriteString(p.Sprintf("Purchase order %s from %s has been received into stock.\n\n", order.Number, order.VendorName))
	for _, item := range items {
		b.WriteString(p.Sprintf("- %s (SKU %s): %d received\n", item.ProductName, item.ProductSKU, item.Quantity))
	}
	return p.Sprintf("Purchase order %s received", order.Number), b.String()
}

func salesConfirmedEmail(p *message.Printer, order sales.Order, items []sales.Item) (string, string) {
	var b strings.Builder
	b.WriteString(p.Sprintf("Sales order %s for %s has been confirmed and stock reserved.\n\n", order.Number, order.CustomerName))
	var total float64
	for _, item := range items {
		lineTotal := float64(item.Quantity) * item.UnitPrice
		total += lineTotal
		b.WriteString(p.Sprintf("- %s (SKU %s): %d x %.2f = %.2f\n", item.ProductName, item.ProductSKU, item.Quantity, item.UnitPrice, lineTotal))
	}
	b.WriteString(p.Sprintf("\nOrder total: %.2f\n", total))
	return p.Sprintf("Sales order %s confirmed", order.Number), b.String()
}

func salesShippedEmail(p *message.Printer, order sales.Order, items []sales.Item) (string, string) {
	var b strings.Builder
	b.WriteString(p.Sprintf("Sales order %s for %s has been shipped.\n\n", order.Number, order.CustomerName))
	for _, item := range items {
		b.WriteString(p.Sprintf("- %s (SKU %s): %d shipped\n", item.ProductName, item.ProductSKU, item.Quantity))
	}
	return p.Sprintf("Sales order %s shipped", order.Number), b.String()
}

func salesCancelledEmail(p *message.Printer, order sales.Order, items []sales.Item) (string, string) {
	var b strings.Builder
	b.WriteString(p.Sprintf("Sales order %s for %s has been cancelled.\n", order.Number, order.CustomerName))
	if len(items) > 0 {
		b.WriteString(p.Sprintf("Reserved stock for %d line(s) has been returned to the ledger where applicable.\n", len(items)))
	}
	return p.Sprintf("Sales order %s cancelled", order.Number), b.String()
}
