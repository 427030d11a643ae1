package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const fileName = "queue.json"

// Command is a request that could not reach the API and waits for `finplay sync`.
type Command struct {
	ID       string          `json:"id"`
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Body     json.RawMessage `json:"body,omitempty"`
	QueuedAt time.Time       `json:"queued_at"`
}

// Queue is the pending-request file inside a CLI state directory.
type Queue struct {
	path string
}

func Open(dir string) *Queue {
	return &Queue{path: filepath.Join(dir, fileName)}
}

func (q *Queue) Load() ([]Command, error) {
	raw, err := os.ReadFile(q.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(raw) == 0) {
		return []Command{}, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("read %s: %w", q.path, err)
	}
	return out, nil
}

// Save replaces the queue. An empty queue removes the file.
func (q *Queue) Save(commands []Command) error {
	if len(commands) == 0 {
		if err := os.Remove(q.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	// Write beside the queue and rename so a crash never leaves half a file.
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, q.path)
}

func (q *Queue) Push(cmd Command) error {
	commands, err := q.Load()
	if err != nil {
		return err
	}
	return q.Save(append(commands, cmd))
}

// Replay sends queued commands in order and returns the ones that failed,
// still in order, along with each failure.
func Replay(ctx context.Context, commands []Command, send func(context.Context, Command) error) ([]Command, []error) {
	remaining := make([]Command, 0, len(commands))
	var errs []error
	for _, cmd := range commands {
		if err := send(ctx, cmd); err != nil {
			remaining = append(remaining, cmd)
			errs = append(errs, err)
		}
	}
	return remaining, errs
}
