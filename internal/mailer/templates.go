package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
)

type templateData struct {
	Booking   *models.Booking
	SiteName  string
	OldStatus string
	NewStatus string
}

type emailTemplate struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

const htmlLayout = `<!DOCTYPE html>
<html><body style="font-family: Georgia, serif; color: #3b2418; max-width: 600px; margin: auto;">
<h2 style="color: #6f4e37;">{{.SiteName}}</h2>
{{template "content" .}}
<p style="font-size: 12px; color: #8a7565;">Booking reference #{{.Booking.ID}}</p>
</body></html>`

const detailsHTML = `<table cellpadding="4">
<tr><td>Package</td><td>{{.Booking.SelectedPackage}}</td></tr>
<tr><td>Guests</td><td>{{.Booking.NumberOfPeople}} ({{.Booking.BookingType}})</td></tr>
<tr><td>Country</td><td>{{.Booking.Country}}</td></tr>
</table>`

func mustTemplate(name, subject, html, text string) emailTemplate {
	h := htmltemplate.Must(htmltemplate.New(name).Parse(htmlLayout))
	htmltemplate.Must(h.New("details").Parse(detailsHTML))
	htmltemplate.Must(h.New("content").Parse(html))
	return emailTemplate{
		subject: texttemplate.Must(texttemplate.New(name + "-subject").Parse(subject)),
		html:    h,
		text:    texttemplate.Must(texttemplate.New(name + "-text").Parse(text)),
	}
}

var templates = map[Kind]emailTemplate{
	BookingConfirmation: mustTemplate(string(BookingConfirmation),
		`Your booking request for {{.Booking.SelectedPackage}} was received`,
		`<p>Dear {{.Booking.FullName}},</p>
<p>Thank you for choosing us. We received your booking request and will contact you shortly to confirm the details.</p>
{{template "details" .}}`,
		`Dear {{.Booking.FullName}},

Thank you for choosing {{.SiteName}}. We received your booking request for {{.Booking.SelectedPackage}} ({{.Booking.NumberOfPeople}} guest(s)) and will contact you shortly.

Booking reference #{{.Booking.ID}}
`),

	PaymentConfirmation: mustTemplate(string(PaymentConfirmation),
		`Your {{.Booking.SelectedPackage}} booking is confirmed`,
		`<p>Dear {{.Booking.FullName}},</p>
<p>Your payment was received and your place on the tour is confirmed. We look forward to welcoming you.</p>
{{template "details" .}}`,
		`Dear {{.Booking.FullName}},

Your payment was received and your booking for {{.Booking.SelectedPackage}} is confirmed.

Booking reference #{{.Booking.ID}}
`),

	StatusUpdate: mustTemplate(string(StatusUpdate),
		`Update on your {{.Booking.SelectedPackage}} booking`,
		`<p>Dear {{.Booking.FullName}},</p>
<p>The status of your booking {{if .OldStatus}}changed from <strong>{{.OldStatus}}</strong> to{{else}}is now{{end}} <strong>{{.NewStatus}}</strong>.</p>
{{with .Booking.Notes}}<p>{{.}}</p>{{end}}
{{template "details" .}}`,
		`Dear {{.Booking.FullName}},

The status of your booking {{if .OldStatus}}changed from {{.OldStatus}} to{{else}}is now{{end}} {{.NewStatus}}.
{{with .Booking.Notes}}
{{.}}
{{end}}
Booking reference #{{.Booking.ID}}
`),

	AdminNotification: mustTemplate(string(AdminNotification),
		`New booking: {{.Booking.FullName}} - {{.Booking.SelectedPackage}}`,
		`<p>A new booking request was submitted.</p>
<table cellpadding="4">
<tr><td>Name</td><td>{{.Booking.FullName}}</td></tr>
<tr><td>Email</td><td>{{.Booking.Email}}</td></tr>
<tr><td>Phone</td><td>{{.Booking.Phone}}</td></tr>
<tr><td>Age</td><td>{{.Booking.Age}}</td></tr>
</table>
{{template "details" .}}`,
		`New booking request #{{.Booking.ID}}

Name: {{.Booking.FullName}}
Email: {{.Booking.Email}}
Phone: {{.Booking.Phone}}
Age: {{.Booking.Age}}
Country: {{.Booking.Country}}
Package: {{.Booking.SelectedPackage}}
Guests: {{.Booking.NumberOfPeople}} ({{.Booking.BookingType}})
`),
}

func render(kind Kind, data templateData) (subject, html, text string, err error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email kind %q", kind)
	}

	var buf bytes.Buffer
	if err := tmpl.subject.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render %s subject: %w", kind, err)
	}
	subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := tmpl.html.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render %s html: %w", kind, err)
	}
	html = buf.String()

	buf.Reset()
	if err := tmpl.text.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render %s text: %w", kind, err)
	}
	text = buf.String()

	return subject, html, text, nil
}
