package channel

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/notifyhub/pricewatch/internal/domain"
)

const (
	dateLayout = "02 Jan 2006"
	timeLayout = "03:04 PM"
)

var unitNames = map[domain.Unit]string{
	domain.UnitGram:      "Gram",
	domain.UnitTola:      "Tola",
	domain.UnitTroyOunce: "Troy Ounce",
	domain.UnitKilogram:  "Kg",
}

var currencySymbols = map[string]string{
	"PKR": "Rs.",
	"INR": "Rs.",
	"USD": "$",
}

// Renderer formats payloads for humans. Times are shown in Location.
type Renderer struct {
	Location *time.Location
	printer  *message.Printer
}

func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{Location: loc, printer: message.NewPrinter(language.English)}
}

// Line is one rendered price row.
type Line struct {
	Label string
	Value string
}

type view struct {
	Title        string
	Date         string
	Time         string
	Lines        []Line
	Source       string
	Rate         string
	FallbackRate bool
}

// Money formats v with group separators and the given number of decimals, or
// "N/A" for the zero "unavailable" sentinel.
func (r *Renderer) Money(currency string, v float64, decimals int) string {
	if !(v > 0) {
		return "N/A"
	}
	sym, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		sym = strings.ToUpper(currency)
	}
	return sym + " " + r.printer.Sprintf("%.*f", decimals, v)
}

func (r *Renderer) view(p domain.NotificationPayload) view {
	at := p.GeneratedAt.In(r.Location)
	unit := unitNames[p.Unit]
	if unit == "" {
		unit = string(p.Unit)
	}

	lines := []Line{{Label: fmt.Sprintf("%s per %s", p.PrimaryLabel, unit), Value: r.Money(p.Currency, p.PrimaryPrice, p.Decimals)}}
	if p.SecondaryLabel != "" {
		lines = append(lines, Line{Label: fmt.Sprintf("%s per %s", p.SecondaryLabel, unit), Value: r.Money(p.Currency, p.SecondaryPrice, p.Decimals)})
	}

	return view{
		Title:        fmt.Sprintf("%s Price Update (%s)", p.Commodity, p.Currency),
		Date:         at.Format(dateLayout),
		Time:         at.Format(timeLayout),
		Lines:        lines,
		Source:       p.SourceName,
		Rate:         r.printer.Sprintf("%.2f", p.ExchangeRate.Rate),
		FallbackRate: p.ExchangeRate.LowConfidence,
	}
}

// Text renders the fixed-structure body shared by the messaging channel and
// the plain-text part of the email.
func (r *Renderer) Text(p domain.NotificationPayload) string {
	v := r.view(p)

	var b strings.Builder
	b.WriteString(v.Title + "\n")
	fmt.Fprintf(&b, "📅 %s | ⏰ %s\n\n", v.Date, v.Time)
	for _, l := range v.Lines {
		fmt.Fprintf(&b, "%s: %s\n", l.Label, l.Value)
	}
	fmt.Fprintf(&b, "\nSource: %s", v.Source)
	if v.FallbackRate {
		fmt.Fprintf(&b, " (fallback rate %s)", v.Rate)
	}
	return b.String()
}

// Subject is the email subject line.
func (r *Renderer) Subject(p domain.NotificationPayload) string {
	return fmt.Sprintf("%s Price Update - %s", p.Commodity, p.GeneratedAt.In(r.Location).Format(dateLayout))
}

var htmlTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
<h2>{{.Title}}</h2>
<p>{{.Date}} | {{.Time}}</p>
<table cellpadding="6" style="border-collapse: collapse;">
{{- range .Lines}}
<tr><td>{{.Label}}</td><td><strong>{{.Value}}</strong></td></tr>
{{- end}}
</table>
<p style="color: #666;">Source: {{.Source}}{{if .FallbackRate}} (fallback rate {{.Rate}}){{end}}</p>
</body>
</html>
`))

// HTML renders the HTML alternative of the email body.
func (r *Renderer) HTML(p domain.NotificationPayload) (string, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, r.view(p)); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
