// Package email sends quote documents to customers over SMTP.
package email

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotConfigured is returned when SMTP settings are missing.
var ErrNotConfigured = errors.New("email not configured")

// Config holds SMTP configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Service provides email operations.
type Service struct {
	config   Config
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service.
func NewService(config Config) *Service {
	return &Service{
		config:   config,
		sendMail: smtp.SendMail,
	}
}

// IsConfigured returns true if SMTP is configured.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.From != ""
}

// Quote is the content of a quote e-mail.
type Quote struct {
	To          string
	Customer    string
	OfferNumber string
	Date        string
	Total       string
	PDFPath     string
}

// SendQuote mails the quote document as an attachment.
func (s *Service) SendQuote(q Quote) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}

	msg, err := s.buildQuoteMessage(q)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := s.sendMail(addr, auth, s.config.From, []string{q.To}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) buildQuoteMessage(q Quote) ([]byte, error) {
	attachment, err := os.ReadFile(q.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote document: %w", err)
	}

	body, err := renderQuoteTemplate(q)
	if err != nil {
		return nil, fmt.Errorf("failed to render quote template: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", q.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Offerta N. "+q.OfferNumber))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mw.Boundary())

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	part.Write([]byte(body))

	name := filepath.Base(q.PDFPath)
	part, err = mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType("application/pdf", map[string]string{"name": name})},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
	})
	if err != nil {
		return nil, err
	}
	part.Write([]byte(wrapBase64(attachment)))

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wrapBase64 encodes data in lines of 76 characters.
func wrapBase64(data []byte) string {
	enc := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
	b.WriteString("\r\n")
	return b.String()
}

const quoteTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Georgia, 'Times New Roman', serif; color: #1f2937;">
    <p>Spett.le {{.Customer}},</p>
    <p>in allegato trovate la nostra offerta N. <strong>{{.OfferNumber}}</strong>{{if .Date}} del {{.Date}}{{end}}.</p>
    {{if .Total}}<p>Importo complessivo: <strong>{{.Total}} €</strong>.</p>{{end}}
    <p>Restiamo a disposizione per qualsiasi chiarimento.</p>
    <p>Cordiali saluti,<br>Valtservice</p>
</body>
</html>
`

var quoteTmpl = template.Must(template.New("quote").Parse(quoteTemplate))

func renderQuoteTemplate(q Quote) (string, error) {
	var buf bytes.Buffer
	if err := quoteTmpl.Execute(&buf, q); err != nil {
		return "", err
	}
	return buf.String(), nil
}
