package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

// renderReceipt produces a single-page PDF listing the order.
func renderReceipt(order *models.Order) []byte {
	lines := []string{
		"Order Receipt",
		"",
		"Order: " + order.ID,
		"Date: " + order.CreatedAt.Format("2006-01-02 15:04 MST"),
		"Customer: " + order.UserEmail,
		"Ship to: " + order.ShippingAddress,
		"Payment: " + order.PaymentMethod + " (" + string(order.PaymentStatus) + ")",
		"Status: " + string(order.Status),
		"",
	}
	for _, item := range order.Items {
		lines = append(lines, fmt.Sprintf("%dx %s @ $%s = $%s",
			item.Quantity, item.Product.Name, item.Price.StringFixed(2), item.TotalPrice.StringFixed(2)))
	}
	lines = append(lines, "", "Total: $"+order.TotalAmount.StringFixed(2))

	var content bytes.Buffer
	content.WriteString("BT\n/F1 12 Tf\n16 TL\n50 800 Td\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", pdfEscape(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes()
}

var pdfReplacer = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func pdfEscape(s string) string {
	return pdfReplacer.Replace(s)
}
