// Package invoicing renders the invoice of a facturada booking.
package invoicing

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/hotel-pms/hotel-pms/internal/booking"
	"github.com/hotel-pms/hotel-pms/internal/payments"
	"github.com/hotel-pms/hotel-pms/web"
)

// PDFClient exposes the subset of the report client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Line is one billed concept.
type Line struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Document is the data behind one invoice.
type Document struct {
	HotelName string
	Number    string
	IssuedAt  time.Time
	Booking   booking.Booking
	Lines     []Line
	Payments  []payments.Payment
	Summary   payments.Summary
}

// Renderer turns Documents into HTML and PDF.
type Renderer struct {
	tpl    *template.Template
	client PDFClient
}

// NewRenderer parses the invoice template. Amounts are formatted for locale.
func NewRenderer(client PDFClient, locale language.Tag) (*Renderer, error) {
	if client == nil {
		return nil, fmt.Errorf("invoice renderer: pdf client required")
	}
	printer := message.NewPrinter(locale)
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006")
		},
		"money": func(d decimal.Decimal) string {
			return printer.Sprintf("$ %v", number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
		},
	}
	tpl, err := template.New("folio.html").Funcs(funcMap).ParseFS(web.Templates, "templates/invoices/folio.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl, client: client}, nil
}

// HTML executes the template.
func (r *Renderer) HTML(doc Document) (string, error) {
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PDF renders doc and converts it.
func (r *Renderer) PDF(ctx context.Context, doc Document) ([]byte, error) {
	html, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html)
}
