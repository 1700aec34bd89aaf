// Package storage keeps an on-disk journal of gateway events.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dohr-michael/dbtsel/internal/events"
)

// globalLog holds events that belong to no session.
const globalLog = "_global.jsonl"

// journalBuffer is the number of events queued for writing.
const journalBuffer = 256

// Journal appends bus events to JSONL files, one file per session, in the
// order the bus dispatched them.
type Journal struct {
	dir         string
	unsubscribe func()
	done        chan struct{}
	once        sync.Once
}

// NewJournal subscribes to every event on bus and appends it under dir.
func NewJournal(dir string, bus *events.Bus) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	ch, unsubscribe := bus.SubscribeChan(journalBuffer)
	j := &Journal{dir: dir, unsubscribe: unsubscribe, done: make(chan struct{})}
	go j.run(ch)
	return j, nil
}

// Close stops recording once queued events are written.
func (j *Journal) Close() {
	j.once.Do(func() {
		j.unsubscribe()
		<-j.done
	})
}

func (j *Journal) run(ch <-chan events.Event) {
	defer close(j.done)
	for e := range ch {
		if err := j.append(e); err != nil {
			slog.Warn("journal write failed", "event", e.Type, "error", err)
		}
	}
}

func (j *Journal) append(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(logPath(j.dir, e.SessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// ReadSession returns the journaled events of a session, oldest first. An
// empty id reads events that belong to no session. A session with no
// journal yields no events.
func ReadSession(dir, sessionID string) ([]events.Event, error) {
	f, err := os.Open(logPath(dir, sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []events.Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		var e events.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(f.Name()), line, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func logPath(dir, sessionID string) string {
	if sessionID == "" {
		return filepath.Join(dir, globalLog)
	}
	return filepath.Join(dir, sessionID+".jsonl")
}
