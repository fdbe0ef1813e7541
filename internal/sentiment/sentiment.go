// Package sentiment scores free text with an AFINN-style word list.
package sentiment

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed afinn.tsv
var afinnTSV []byte

// Scorer maps text to a signed polarity score: positive for favourable tone,
// negative for unfavourable, zero for neutral or unscorable.
type Scorer interface {
	Score(ctx context.Context, text string) (int, error)
}

// negators flip the sign of the scored token that follows them.
var negators = map[string]struct{}{
	"cant": {}, "can't": {}, "dont": {}, "don't": {}, "doesnt": {}, "doesn't": {},
	"not": {}, "non": {}, "wont": {}, "won't": {}, "isnt": {}, "isn't": {},
	"never": {}, "no": {}, "wasnt": {}, "wasn't": {}, "didnt": {}, "didn't": {},
}

// Result is the detailed outcome of Analyze.
type Result struct {
	Score       int
	Comparative float64
	Tokens      []string
	Positive    []string
	Negative    []string
}

// Analyzer scores text against a lexicon. It is immutable after construction
// and safe for concurrent use.
type Analyzer struct {
	lexicon map[string]int
}

var _ Scorer = (*Analyzer)(nil)

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithExtras adds or overrides lexicon entries.
func WithExtras(extras map[string]int) Option {
	return func(a *Analyzer) {
		for word, score := range extras {
			a.lexicon[fold(word)] = score
		}
	}
}

// NewAnalyzer loads the embedded word list and applies opts.
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	lexicon, err := parseLexicon(afinnTSV)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{lexicon: lexicon}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Score returns the summed polarity of text.
func (a *Analyzer) Score(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return a.Analyze(text).Score, nil
}

// Analyze tokenizes text and sums the lexicon score of each token. Two-word
// entries match before single words; a negator directly before a scored
// token flips its sign.
func (a *Analyzer) Analyze(text string) Result {
	tokens := tokenize(text)
	res := Result{Tokens: tokens}

	for i := 0; i < len(tokens); i++ {
		word := tokens[i]
		score, ok := 0, false
		if i+1 < len(tokens) {
			if s, found := a.lexicon[word+" "+tokens[i+1]]; found {
				word, score, ok = word+" "+tokens[i+1], s, true
			}
		}
		next := i
		if ok {
			next = i + 1
		} else if s, found := a.lexicon[word]; found {
			score, ok = s, true
		}
		if !ok {
			continue
		}

		if i > 0 {
			if _, neg := negators[tokens[i-1]]; neg {
				score = -score
			}
		}

		res.Score += score
		switch {
		case score > 0:
			res.Positive = append(res.Positive, word)
		case score < 0:
			res.Negative = append(res.Negative, word)
		}
		i = next
	}

	if len(tokens) > 0 {
		res.Comparative = float64(res.Score) / float64(len(tokens))
	}
	return res
}

func parseLexicon(data []byte) (map[string]int, error) {
	lexicon := make(map[string]int, 512)
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		word, raw, ok := strings.Cut(text, "\t")
		if !ok {
			return nil, fmt.Errorf("lexicon line %d: missing tab separator", line)
		}
		score, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("lexicon line %d: %w", line, err)
		}
		lexicon[fold(word)] = score
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return lexicon, nil
}
