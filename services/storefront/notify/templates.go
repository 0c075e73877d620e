package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// Template names.
const (
	TemplatePasswordReset = "password_reset"
	TemplateOrderPlaced   = "order_placed"
	TemplateWelcome       = "welcome"
	TemplateQuestionReply = "question_reply"
)

var subjects = map[string]string{
	TemplatePasswordReset: "Your PawMart password reset code",
	TemplateOrderPlaced:   "Order confirmed!",
	TemplateWelcome:       "Welcome to PawMart!",
	TemplateQuestionReply: "We answered your question",
}

var templates = template.Must(template.New("mail").Parse(`
{{define "password_reset"}}<p>Your password reset code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.ExpiresInMinutes}} minutes. If you did not ask for it, ignore this email.</p>{{end}}
{{define "order_placed"}}<p>Thanks for your order <strong>{{.OrderID}}</strong>!</p>
<table>{{range .Items}}<tr><td>{{.Title}}</td><td>x{{.Quantity}}</td><td>{{.Price}}</td></tr>{{end}}</table>
<p>Total: <strong>{{.Total}}</strong></p>
<p>Payment: {{.PaymentMethod}} ({{.PaymentStatus}})</p>{{end}}
{{define "welcome"}}<p>Hi {{.Name}}, welcome to PawMart. Your account is ready.</p>{{end}}
{{define "question_reply"}}<p>Hi {{.Name}},</p><p>You asked: <em>{{.Question}}</em></p><p>{{.Answer}}</p>{{end}}
`))

// Render returns the subject and HTML body of the named template.
func Render(name string, data any) (string, string, error) {
	subject, ok := subjects[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return subject, buf.String(), nil
}

// Deliver renders the named template and sends it to one recipient.
func Deliver(ctx context.Context, sender EmailSender, to, name string, data any) error {
	subject, body, err := Render(name, data)
	if err != nil {
		return err
	}
	_, err = sender.SendEmail(ctx, to, subject, body)
	return err
}
