// Package heartbeat records where a running dbtsel gateway listens, so that
// other commands can find it without being told its address.
package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileName is the heartbeat file kept in the dbtsel home directory.
const FileName = "heartbeat.json"

// DefaultInterval is how often a running gateway refreshes its record.
const DefaultInterval = 30 * time.Second

// Status is the liveness of a gateway as read from its record.
type Status string

const (
	StatusAlive Status = "alive"
	StatusStale Status = "stale"
	StatusDead  Status = "dead"
)

// Path returns the heartbeat file under home.
func Path(home string) string {
	return filepath.Join(home, FileName)
}

// Gateway is what a heartbeat samples on every refresh.
type Gateway interface {
	Addr() string
	Sessions() int
}

// Record is the content of the heartbeat file.
type Record struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	Sessions  int       `json:"sessions"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status reports StatusStale when the record was not refreshed within maxAge.
func (r *Record) Status(now time.Time, maxAge time.Duration) Status {
	if now.Sub(r.UpdatedAt) > maxAge {
		return StatusStale
	}
	return StatusAlive
}

// Uptime is the time since the gateway started, to the second.
func (r *Record) Uptime(now time.Time) time.Duration {
	return now.Sub(r.StartedAt).Truncate(time.Second)
}

// BaseURL is the HTTP base URL of the gateway.
func (r *Record) BaseURL() string {
	return "http://" + r.Addr
}

// Run keeps the heartbeat at path current until ctx is done, then removes
// it. The first record is written before Run starts waiting.
func Run(ctx context.Context, path string, interval time.Duration, gw Gateway) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	started := time.Now()
	refresh := func() {
		rec := Record{
			PID:       os.Getpid(),
			Addr:      gw.Addr(),
			Sessions:  gw.Sessions(),
			StartedAt: started,
			UpdatedAt: time.Now(),
		}
		if err := Write(path, rec); err != nil {
			slog.Debug("heartbeat write", "path", path, "error", err)
		}
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			refresh()
		case <-ctx.Done():
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Debug("heartbeat remove", "path", path, "error", err)
			}
			return
		}
	}
}

// Write replaces the record at path atomically.
func Write(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode heartbeat: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create heartbeat dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write heartbeat: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Read returns the record at path, or nil when there is none.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read heartbeat: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode heartbeat %s: %w", path, err)
	}
	return &rec, nil
}

// Find reads the record at path and grades it against maxAge. A missing
// record means StatusDead.
func Find(path string, maxAge time.Duration) (Status, *Record, error) {
	rec, err := Read(path)
	if err != nil || rec == nil {
		return StatusDead, nil, err
	}
	return rec.Status(time.Now(), maxAge), rec, nil
}
