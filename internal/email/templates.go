package email

import (
	"bytes"
	"html/template"

	"github.com/example/bakery-pos/internal/money"
	"github.com/shopspring/decimal"
)

// ReceiptItem is one receipt line.
type ReceiptItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i ReceiptItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Receipt struct {
	OrderID       string
	CustomerName  string
	PaymentMethod string
	Items         []ReceiptItem
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
}

var paymentLabels = map[string]string{
	"Cash":     "Efectivo",
	"Card":     "Tarjeta",
	"Transfer": "Transferencia",
}

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"amount": func(d decimal.Decimal) string { return "$" + d.StringFixed(money.Places) },
	"payment": func(m string) string {
		if label, ok := paymentLabels[m]; ok {
			return label
		}
		return m
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Georgia, serif; line-height: 1.6; color: #3b2a1a; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #c8860d; padding: 24px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">¡Gracias por su compra!</h1>
	</div>

	<div style="background: #fffaf2; padding: 24px; border: 1px solid #eadcc6; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Hola{{if .CustomerName}} {{.CustomerName}}{{end}}, este es el recibo de su pedido.</p>

		<p style="font-size: 14px; color: #7a6650;">Pedido <strong style="font-family: monospace;">{{.OrderID}}</strong><br>
		Método de pago: {{payment .PaymentMethod}}</p>

		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f3e6d0;">
					<th style="padding: 10px; text-align: left;">Producto</th>
					<th style="padding: 10px; text-align: center;">Cantidad</th>
					<th style="padding: 10px; text-align: right;">Precio</th>
					<th style="padding: 10px; text-align: right;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
			{{- range .Items}}
				<tr>
					<td style="padding: 10px; border-bottom: 1px solid #eadcc6;">{{.Name}}</td>
					<td style="padding: 10px; border-bottom: 1px solid #eadcc6; text-align: center;">{{.Quantity}}</td>
					<td style="padding: 10px; border-bottom: 1px solid #eadcc6; text-align: right;">{{amount .UnitPrice}}</td>
					<td style="padding: 10px; border-bottom: 1px solid #eadcc6; text-align: right;">{{amount .Subtotal}}</td>
				</tr>
			{{- end}}
			</tbody>
		</table>

		{{- if .Discount.IsPositive}}
		<p style="text-align: right; margin: 0;">Subtotal: {{amount .Subtotal}}</p>
		<p style="text-align: right; margin: 0; color: #2e7d32;">Descuentos: -{{amount .Discount}}</p>
		{{- end}}
		<p style="text-align: right; font-size: 20px; font-weight: bold;">Total: {{amount .Total}}</p>

		<p style="font-size: 12px; color: #a08c74; margin-bottom: 0;">Este correo se generó automáticamente. Por favor no responda a este mensaje.</p>
	</div>
</body>
</html>
`))

// BuildReceiptBody renders the HTML receipt. Customer-supplied text is escaped.
func BuildReceiptBody(r Receipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}
