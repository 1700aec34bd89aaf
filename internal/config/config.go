package config

import (
	"time"

	"github.com/dohr-michael/dbtsel/internal/criteria"
)

// Config is the root configuration for dbtsel.
type Config struct {
	Limits  LimitsConfig  `json:"limits"`
	Output  OutputConfig  `json:"output"`
	Gateway GatewayConfig `json:"gateway"`
	Events  EventsConfig  `json:"events"`
}

// LimitsConfig bounds the criteria accepted when authoring and validating.
// A negative MaxItems or MaxExclusions removes that bound.
type LimitsConfig struct {
	MaxDepth      int `json:"max_depth"`
	MinItems      int `json:"min_items"`
	MaxItems      int `json:"max_items"`
	MaxExclusions int `json:"max_exclusions"`
}

// Criteria converts the section into builder limits.
func (l LimitsConfig) Criteria() criteria.Limits {
	return criteria.Limits{
		MaxDepth:      l.MaxDepth,
		MinItems:      l.MinItems,
		MaxItems:      l.MaxItems,
		MaxExclusions: l.MaxExclusions,
	}
}

// OutputConfig controls where and how selectors.yml is written.
type OutputConfig struct {
	Path   string `json:"path"`   // default: ./selectors.yml
	Indent int    `json:"indent"` // default: 2
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	ShutdownTimeout Duration `json:"shutdown_timeout,omitempty"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
	// JournalDir, when set, makes the gateway append every event to
	// per-session JSONL files in this directory.
	JournalDir string `json:"journal_dir,omitempty"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
