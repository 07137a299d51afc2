// notify/render.go
package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// SiteName appears in subjects and message footers.
const SiteName = "Il Sorpasso"

var italianMonths = [...]string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

// rome is the display zone for received-at dates; UTC if tzdata is missing.
var rome = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// formatItalian renders t as "14 ottobre 2026 alle ore 10:30" in Rome time.
func formatItalian(t time.Time) string {
	t = t.In(rome)
	return fmt.Sprintf("%d %s %d alle ore %02d:%02d",
		t.Day(), italianMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// splitLines lets templates join escaped lines with <br>.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

var funcs = htmltemplate.FuncMap{"lines": splitLines}

// contactView is the data passed to the contact templates.
type contactView struct {
	Site       string
	Name       string
	Email      string
	Message    string
	SpamScore  int
	Flagged    bool
	ReceivedAt string
}

var contactHTML = htmltemplate.Must(htmltemplate.New("contact.html").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Nuova richiesta di contatto - {{.Site}}</title>
</head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
<div style="background-color: white; border-radius: 10px; overflow: hidden;">
<div style="background: #DC2626; padding: 30px; text-align: center;">
<h1 style="color: white; margin: 0;">🚗 {{.Site}}</h1>
<p style="color: #FEE2E2; margin: 10px 0 0 0;">Nuova richiesta di contatto dal sito web</p>
</div>
<div style="padding: 30px;">
{{- if .Flagged}}
<div style="background-color: #FEF3C7; border: 1px solid #F59E0B; padding: 15px; border-radius: 6px; margin-bottom: 20px;">
<h4 style="color: #92400E; margin: 0 0 10px 0;">⚠️ Possibile Spam (Score: {{.SpamScore}}/10)</h4>
<p style="color: #92400E; margin: 0; font-size: 14px;">Questo messaggio ha un punteggio spam elevato. Verifica attentamente prima di rispondere.</p>
</div>
{{- end}}
<table style="width: 100%; border-collapse: collapse;">
<tr><td style="font-weight: bold; color: #6B7280;">👤 Nome:</td><td>{{.Name}}</td></tr>
<tr><td style="font-weight: bold; color: #6B7280;">📧 Email:</td><td><a href="mailto:{{.Email}}" style="color: #DC2626;">{{.Email}}</a></td></tr>
<tr><td style="font-weight: bold; color: #6B7280;">🔍 Spam Score:</td><td>{{.SpamScore}}/10</td></tr>
<tr><td style="font-weight: bold; color: #6B7280;">🕒 Data:</td><td>{{.ReceivedAt}}</td></tr>
</table>
<div style="background-color: #FFFBEB; padding: 25px; border-radius: 8px; margin-top: 25px;">
<h4 style="margin: 0 0 15px 0; color: #92400E;">💬 Messaggio:</h4>
<div style="background-color: white; padding: 20px; line-height: 1.6;">
{{- range $i, $l := lines .Message}}{{if $i}}<br>{{end}}{{$l}}{{end -}}
</div>
</div>
<div style="text-align: center; margin: 30px 0;">
<a href="mailto:{{.Email}}?subject=Re: Richiesta di contatto - {{.Site}}" style="background-color: #DC2626; color: white; padding: 12px 30px; text-decoration: none; border-radius: 6px;">📧 Rispondi Subito</a>
</div>
</div>
<div style="background-color: #F9FAFB; padding: 20px; text-align: center;">
<p style="margin: 0; font-size: 14px; color: #6B7280;">Messaggio inviato automaticamente dal sito web <strong>{{.Site}}</strong></p>
</div>
</div>
</body>
</html>
`))

var contactText = texttemplate.Must(texttemplate.New("contact.txt").Parse(`Nuova richiesta di contatto da {{.Name}}

Email: {{.Email}}
Spam Score: {{.SpamScore}}/10
{{- if .Flagged}}
ATTENZIONE: possibile spam, verifica prima di rispondere.
{{- end}}

Messaggio:
{{.Message}}

Ricevuto il: {{.ReceivedAt}}
`))

var forwardHTML = htmltemplate.Must(htmltemplate.New("forward.html").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Nuova richiesta di contatto</title>
</head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="border-bottom: 3px solid #DC2626; padding-bottom: 20px; margin-bottom: 30px;">
<h1 style="color: #DC2626; margin: 0;">{{.Site}}</h1>
<h2 style="color: #333; margin: 10px 0 0 0;">Nuova richiesta di contatto</h2>
</div>
<table style="width: 100%; border-collapse: collapse;">
<tr><td style="font-weight: bold; color: #555;">Nome:</td><td>{{.Name}}</td></tr>
<tr><td style="font-weight: bold; color: #555;">Email:</td><td><a href="mailto:{{.Email}}" style="color: #DC2626;">{{.Email}}</a></td></tr>
</table>
<h4 style="color: #333;">Messaggio:</h4>
<div style="background-color: white; padding: 20px; border-left: 4px solid #DC2626; line-height: 1.6;">
{{- range $i, $l := lines .Message}}{{if $i}}<br>{{end}}{{$l}}{{end -}}
</div>
<p style="font-size: 14px; color: #666;"><strong>Ricevuto il:</strong> {{.ReceivedAt}}</p>
<p style="font-size: 12px; color: #999;">Questo messaggio è stato inviato automaticamente dal sito web {{.Site}}</p>
</body>
</html>
`))

var forwardText = texttemplate.Must(texttemplate.New("forward.txt").Parse(`Nuova richiesta di contatto da {{.Name}}

Email: {{.Email}}

Messaggio:
{{.Message}}
`))

// Subject returns the notification subject for a contact from name.
func Subject(name string, flagged bool) string {
	if flagged {
		return "🚗 [POSSIBILE SPAM] Nuova richiesta di contatto da " + name
	}
	return "🚗 Nuova richiesta di contatto da " + name
}

func forwardSubject(name string) string {
	return "Nuova richiesta di contatto da " + name
}

// renderContact builds the HTML and text bodies of a scored submission.
func renderContact(s Submission, score int, flagged bool, at time.Time) (html, text string, err error) {
	view := contactView{
		Site:       SiteName,
		Name:       s.Name,
		Email:      s.Email,
		Message:    s.Message,
		SpamScore:  score,
		Flagged:    flagged,
		ReceivedAt: formatItalian(at),
	}
	return render(view, "contact")
}

// renderForward builds the bodies of an unscored notice.
func renderForward(s Submission, at time.Time) (html, text string, err error) {
	view := contactView{
		Site:       SiteName,
		Name:       s.Name,
		Email:      s.Email,
		Message:    s.Message,
		ReceivedAt: formatItalian(at),
	}
	return render(view, "forward")
}

func render(view contactView, kind string) (string, string, error) {
	h, t := contactHTML, contactText
	if kind == "forward" {
		h, t = forwardHTML, forwardText
	}

	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, view); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", kind, err)
	}
	if err := t.Execute(&tb, view); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", kind, err)
	}
	return hb.String(), tb.String(), nil
}
