package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/contactd/backend/internal/model"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// ContactRepository defines the persistence interface for contact submissions.
// It is append-only: there is no update or delete path.
type ContactRepository interface {
	Save(ctx context.Context, s *model.ContactSubmission) error
	List(ctx context.Context, opts model.ContactListOptions) ([]*model.ContactSubmission, error)
}

// PgContactRepository is the PostgreSQL implementation of ContactRepository.
type PgContactRepository struct {
	db Querier
}

// NewPgContactRepository creates a PgContactRepository backed by the given pool.
func NewPgContactRepository(db Querier) *PgContactRepository {
	return &PgContactRepository{db: db}
}

// Ensure PgContactRepository implements ContactRepository at compile time.
var _ ContactRepository = (*PgContactRepository)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Save inserts a new contact_submissions row and populates s.ID and s.CreatedAt
// from the database RETURNING clause. Empty ip and user agent are stored as NULL.
func (r *PgContactRepository) Save(ctx context.Context, s *model.ContactSubmission) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO contact_submissions (name, email, message, ip, user_agent, sentiment_score, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		 RETURNING id, created_at`,
		s.Name, s.Email, s.Message, s.IP, s.UserAgent, s.SentimentScore, s.CreatedAt,
	).Scan(&s.ID, &s.CreatedAt)
	return mapError("save contact submission", err)
}

// List returns submissions newest first, filtered by sentiment sign and creation time.
func (r *PgContactRepository) List(ctx context.Context, opts model.ContactListOptions) ([]*model.ContactSubmission, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := max(opts.Offset, 0)

	q := psql.Select(
		"id", "name", "email", "message",
		"COALESCE(ip, '')", "COALESCE(user_agent, '')",
		"sentiment_score", "created_at",
	).From("contact_submissions")

	switch strings.TrimSpace(opts.Sentiment) {
	case model.SentimentPositive:
		q = q.Where(sq.Gt{"sentiment_score": 0})
	case model.SentimentNegative:
		q = q.Where(sq.Lt{"sentiment_score": 0})
	case model.SentimentNeutral:
		q = q.Where(sq.Eq{"sentiment_score": 0})
	}
	if !opts.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": opts.Since})
	}

	query, args, err := q.OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list contact submissions", err)
	}
	defer rows.Close()

	var out []*model.ContactSubmission
	for rows.Next() {
		var s model.ContactSubmission
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Message, &s.IP, &s.UserAgent, &s.SentimentScore, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, mapError("list contact submissions", rows.Err())
}
