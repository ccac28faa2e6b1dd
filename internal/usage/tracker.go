// Package usage records token usage per turn in a JSONL ledger and reports period totals.
package usage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/llamachat/toolchat/internal/provider"
	"github.com/llamachat/toolchat/internal/store"
)

// Record is one persisted usage entry.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Model        string    `json:"model"`
	Strategy     string    `json:"strategy"`
	Tool         string    `json:"tool,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
}

// Totals holds aggregated token counts.
type Totals struct {
	Today provider.TokenUsage
	Month provider.TokenUsage
	Turns int
}

// Tracker appends usage records and computes period totals.
type Tracker struct {
	path string
	now  func() time.Time
}

// New returns a Tracker for the ledger at path.
func New(path string) *Tracker {
	return &Tracker{path: path, now: time.Now}
}

// Path returns the ledger location.
func (t *Tracker) Path() string {
	return t.path
}

// Append writes one usage record.
func (t *Tracker) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.path == "" {
		return errors.New("usage path is required")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = t.now()
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal usage record: %w", err)
	}
	if err := store.AppendFile(t.path, append(encoded, '\n')); err != nil {
		return fmt.Errorf("append usage record: %w", err)
	}
	return nil
}

// Totals returns today's and this month's token totals in local time.
func (t *Tracker) Totals(ctx context.Context, now time.Time) (Totals, error) {
	var totals Totals

	if err := ctx.Err(); err != nil {
		return Totals{}, err
	}
	if t.path == "" {
		return Totals{}, errors.New("usage path is required")
	}
	if now.IsZero() {
		now = t.now()
	}

	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return totals, nil
	}
	if err != nil {
		return Totals{}, fmt.Errorf("open usage file: %w", err)
	}
	defer f.Close()

	nowLocal := now.In(time.Local)
	todayYear, todayMonth, todayDay := nowLocal.Date()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Totals{}, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		u := provider.TokenUsage{InputTokens: rec.InputTokens, OutputTokens: rec.OutputTokens, TotalTokens: rec.TotalTokens}
		y, m, d := rec.Timestamp.In(time.Local).Date()
		if y == todayYear && m == todayMonth {
			totals.Month = totals.Month.Add(u)
			if d == todayDay {
				totals.Today = totals.Today.Add(u)
				totals.Turns++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Totals{}, fmt.Errorf("scan usage file: %w", err)
	}

	return totals, nil
}
