package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/contactd/backend/internal/config"
)

//go:embed templates
var templateFS embed.FS

const (
	ownerSubject = "New Contact Form Submission"
	ackSubject   = "Thank you for contacting!"
)

// Notification carries the submission fields rendered into both emails.
type Notification struct {
	Name           string
	Email          string
	Message        string
	IP             string
	UserAgent      string
	Client         string
	SentimentScore int
	ReceivedAt     time.Time
}

// Composer renders the owner notification and the submitter acknowledgement.
// HTML bodies are rendered with html/template so user input is escaped.
type Composer struct {
	html      *htmltemplate.Template
	text      *texttemplate.Template
	receiver  string
	fromName  string
	signature string
}

// NewComposer parses the embedded templates.
func NewComposer(cfg config.MailConfig) (*Composer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Composer{
		html:      html,
		text:      text,
		receiver:  cfg.Receiver,
		fromName:  cfg.FromName,
		signature: cfg.Signature,
	}, nil
}

// OwnerNotification addresses the configured receiver with every submission detail.
// Replies go straight to the submitter.
func (c *Composer) OwnerNotification(n Notification) (Message, error) {
	html, text, err := c.render("owner_notification", n)
	if err != nil {
		return Message{}, err
	}
	return Message{
		FromName: c.fromName,
		To:       c.receiver,
		ReplyTo:  n.Email,
		Subject:  ownerSubject,
		HTML:     html,
		Text:     text,
	}, nil
}

// Acknowledgement addresses the submitter with a fixed thank-you note.
func (c *Composer) Acknowledgement(n Notification) (Message, error) {
	data := struct {
		Name      string
		Signature string
	}{Name: n.Name, Signature: c.signature}

	html, text, err := c.render("acknowledgement", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		FromName: c.signature,
		To:       n.Email,
		Subject:  ackSubject,
		HTML:     html,
		Text:     text,
	}, nil
}

func (c *Composer) render(name string, data any) (string, string, error) {
	var html, text bytes.Buffer
	if err := c.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return "", "", fmt.Errorf("render %s.html: %w", name, err)
	}
	if err := c.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return "", "", fmt.Errorf("render %s.txt: %w", name, err)
	}
	return html.String(), text.String(), nil
}
