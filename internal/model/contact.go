package model

import "time"

// ContactSubmission is a message submitted via the contact form.
// Records are append-only: once saved they are never updated or deleted.
type ContactSubmission struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Message        string    `json:"message"`
	IP             string    `json:"ip,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	SentimentScore int       `json:"sentiment_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// Sentiment filters for ContactListOptions.
const (
	SentimentAny      = ""
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// ContactListOptions carries filter and pagination parameters for listing submissions.
type ContactListOptions struct {
	// Sentiment filters by score sign: "", "positive", "negative", "neutral".
	Sentiment string
	// Since keeps only submissions created at or after this instant. Zero means no bound.
	Since  time.Time
	Limit  int
	Offset int
}
