// Command contacts lists stored contact form submissions, newest first.
//
// Usage:
//
//	contacts --sentiment=negative --since=24h --limit=50
//	contacts --json
//
// Requires DATABASE_URL environment variable to be set.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/contactd/backend/internal/config"
	"github.com/contactd/backend/internal/logging"
	"github.com/contactd/backend/internal/model"
	"github.com/contactd/backend/internal/repository"
	"github.com/contactd/backend/internal/useragent"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

func main() {
	sentiment := flag.String("sentiment", "", "filter by sentiment: positive, negative or neutral")
	since := flag.Duration("since", 0, "only show submissions newer than this (e.g. 24h)")
	limit := flag.Int("limit", 20, "maximum number of submissions to show")
	offset := flag.Int("offset", 0, "number of submissions to skip")
	asJSON := flag.Bool("json", false, "print JSON lines instead of a table")
	flag.Parse()

	opts, err := listOptions(*sentiment, *since, *limit, *offset, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	logging.Setup(os.Getenv("LOG_LEVEL"))

	var cfg config.DatabaseConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		logging.Fatal("read database config failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := repository.NewPool(ctx, cfg)
	if err != nil {
		logging.Fatal("connect to database failed", "error", err)
	}
	defer pool.Close()

	subs, err := repository.NewPgContactRepository(pool).List(ctx, opts)
	if err != nil {
		logging.Fatal("list submissions failed", "error", err)
	}

	if *asJSON {
		err = writeJSON(os.Stdout, subs)
	} else {
		err = writeTable(os.Stdout, subs)
	}
	if err != nil {
		logging.Fatal("write output failed", "error", err)
	}
}

func listOptions(sentiment string, since time.Duration, limit, offset int, now time.Time) (model.ContactListOptions, error) {
	opts := model.ContactListOptions{Limit: limit, Offset: offset}

	switch s := strings.ToLower(strings.TrimSpace(sentiment)); s {
	case model.SentimentAny, model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral:
		opts.Sentiment = s
	default:
		return opts, fmt.Errorf("unknown sentiment %q", sentiment)
	}
	if since < 0 {
		return opts, fmt.Errorf("--since must not be negative")
	}
	if since > 0 {
		opts.Since = now.Add(-since)
	}
	if limit <= 0 {
		return opts, fmt.Errorf("--limit must be positive")
	}
	if offset < 0 {
		return opts, fmt.Errorf("--offset must not be negative")
	}
	return opts, nil
}

func writeJSON(w io.Writer, subs []*model.ContactSubmission) error {
	enc := json.NewEncoder(w)
	for _, s := range subs {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, subs []*model.ContactSubmission) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECEIVED\tSCORE\tNAME\tEMAIL\tCLIENT\tMESSAGE")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%+d\t%s\t%s\t%s\t%s\n",
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.SentimentScore,
			s.Name,
			s.Email,
			useragent.Parse(s.UserAgent).String(),
			preview(s.Message, 60),
		)
	}
	return tw.Flush()
}

// preview flattens whitespace and truncates to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
