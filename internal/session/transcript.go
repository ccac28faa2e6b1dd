// Package session owns the append-only conversation for one front-end session and optionally mirrors it to a JSONL transcript.
package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/llamachat/toolchat/internal/provider"
	"github.com/llamachat/toolchat/internal/store"
	"github.com/llamachat/toolchat/internal/tools"
)

// Transcript appends conversation records to a JSONL file.
type Transcript struct {
	path string
	now  func() time.Time
}

type record struct {
	Time    time.Time         `json:"time"`
	Role    provider.Role     `json:"role"`
	Content string            `json:"content,omitempty"`
	Tool    *tools.Invocation `json:"tool,omitempty"`
	Kind    string            `json:"kind,omitempty"`
}

const kindReset = "reset"

// NewTranscript creates a transcript writer for path.
func NewTranscript(path string) *Transcript {
	return &Transcript{path: path, now: time.Now}
}

// Path returns the transcript file location.
func (t *Transcript) Path() string {
	return t.path
}

// AppendTurn records one completed turn: the user message, then the reply
// with the tool invocation that produced it, if any.
func (t *Transcript) AppendTurn(ctx context.Context, user, reply provider.ChatMessage, inv *tools.Invocation) error {
	now := t.now().UTC()
	return t.append(ctx,
		record{Time: now, Role: user.Role, Content: user.Content},
		record{Time: now, Role: reply.Role, Content: reply.Content, Tool: inv},
	)
}

// AppendReset marks a conversation reset. Load ignores everything before it.
func (t *Transcript) AppendReset(ctx context.Context) error {
	return t.append(ctx, record{Time: t.now().UTC(), Kind: kindReset})
}

func (t *Transcript) append(ctx context.Context, records ...record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil || t.path == "" {
		return errors.New("transcript path is required")
	}
	var b strings.Builder
	for _, rec := range records {
		encoded, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal transcript record: %w", err)
		}
		b.Write(encoded)
		b.WriteByte('\n')
	}
	if err := store.AppendFile(t.path, []byte(b.String())); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// Load reads the conversation since the last reset. Malformed lines are skipped.
func (t *Transcript) Load(ctx context.Context) ([]provider.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t == nil || t.path == "" {
		return nil, errors.New("transcript path is required")
	}

	content, err := store.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return []provider.ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	messages := make([]provider.ChatMessage, 0)
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Kind == kindReset {
			messages = messages[:0]
			continue
		}
		if rec.Role != provider.RoleUser && rec.Role != provider.RoleAssistant {
			continue
		}
		messages = append(messages, provider.ChatMessage{Role: rec.Role, Content: rec.Content})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	return messages, nil
}
