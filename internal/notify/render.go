package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/d60-Lab/cakeshop/internal/model"
)

type orderView struct {
	ID            string
	Total         int64
	Subtotal      int64
	Tax           int64
	Items         []itemView
	Messages      []itemView
	Delivery      model.Delivery
	PaymentStatus model.PaymentStatus
	OrderStatus   model.OrderStatus
}

type itemView struct {
	model.LineItem
	LineTotal int64
}

func newOrderView(o *model.Order) orderView {
	v := orderView{
		ID:            o.ID,
		Total:         o.Total,
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Delivery:      o.DeliveryDetails(),
		PaymentStatus: o.PaymentStatus,
		OrderStatus:   o.OrderStatus,
	}
	for _, it := range o.LineItems() {
		iv := itemView{LineItem: it, LineTotal: it.PricePerUnit * int64(it.Quantity)}
		v.Items = append(v.Items, iv)
		if strings.TrimSpace(it.CustomMessage) != "" {
			v.Messages = append(v.Messages, iv)
		}
	}
	return v
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var funcs = map[string]any{"fallback": orDefault}

var messageTmpl = texttemplate.Must(texttemplate.New("whatsapp").Funcs(funcs).Parse(`🎂 New Order Received!

Order ID: {{.ID}}
Total Amount: ₹{{.Total}}

ITEMS:
{{range .Items}}• {{.CakeName}} ({{.Weight}}) x{{.Quantity}}
{{end}}
CUSTOMER DETAILS:
Name: {{.Delivery.Name}}
Phone: {{.Delivery.Phone}}
Address: {{.Delivery.Address}}
Postal Code: {{fallback .Delivery.PostalCode "Not provided"}}

DELIVERY:
Date: {{fallback .Delivery.DeliveryDate "Not specified"}}
Time Window: {{fallback .Delivery.TimeWindow "Not specified"}}
{{if .Messages}}
Custom Messages:
{{range .Messages}}• {{.CakeName}}: {{.CustomMessage}}
{{end}}{{end}}
Payment Status: {{.PaymentStatus}}
Order Status: {{.OrderStatus}}`))

var emailTmpl = htmltemplate.Must(htmltemplate.New("email").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px; background: #f9f7f4;">
    <h1>🎂 New Order Received!</h1>
    <p>Order ID: <strong>{{.ID}}</strong></p>
    <h3>Customer Details</h3>
    <p><strong>Name:</strong> {{.Delivery.Name}}</p>
    <p><strong>Phone:</strong> {{.Delivery.Phone}}</p>
    <p><strong>Address:</strong> {{.Delivery.Address}}{{if .Delivery.PostalCode}}, {{.Delivery.PostalCode}}{{end}}</p>
    <p><strong>Delivery Date:</strong> {{fallback .Delivery.DeliveryDate "Not specified"}}</p>
    <p><strong>Time Window:</strong> {{fallback .Delivery.TimeWindow "Not specified"}}</p>
    <h3>Order Items</h3>
    <ul>
      {{range .Items}}<li><strong>{{.CakeName}}</strong> ({{.Weight}}) x{{.Quantity}} - ₹{{.LineTotal}}</li>
      {{end}}
    </ul>
    {{if .Messages}}<h3>Custom Messages</h3>
    <ul>
      {{range .Messages}}<li><strong>{{.CakeName}}:</strong> "{{.CustomMessage}}"</li>
      {{end}}
    </ul>{{end}}
    <p><strong>Subtotal:</strong> ₹{{.Subtotal}}</p>
    <p><strong>Tax:</strong> ₹{{.Tax}}</p>
    <p><strong>Total: ₹{{.Total}}</strong></p>
    <p><strong>Payment Status:</strong> {{.PaymentStatus}}</p>
    <p style="color: #999; font-size: 12px;">This is an automated order notification. Please do not reply to this email.</p>
  </div>
</body>
</html>`))

// RenderMessage WhatsApp 文本
func RenderMessage(o *model.Order) (string, error) {
	var buf bytes.Buffer
	if err := messageTmpl.Execute(&buf, newOrderView(o)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderEmail 返回邮件主题与 HTML 正文；用户输入经 html/template 转义
func RenderEmail(o *model.Order) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, newOrderView(o)); err != nil {
		return "", "", err
	}
	return fmt.Sprintf("🎂 New Order - %s - ₹%d", o.ID, o.Total), buf.String(), nil
}
