package config

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Config sections, as named in the config file.
const (
	SectionLimits  = "limits"
	SectionOutput  = "output"
	SectionGateway = "gateway"
	SectionEvents  = "events"
)

// Listener is called after a reload that changed at least one section.
type Listener func(prev, next *Config, changed []string)

// Reloader swaps the current config atomically on reload and tells
// listeners which sections changed.
type Reloader struct {
	configPath string
	dotenvPath string
	current    atomic.Pointer[Config]
	mu         sync.Mutex // serializes reload
	listeners  []Listener
}

// NewReloader creates a Reloader with the given initial config.
func NewReloader(configPath, dotenvPath string, initial *Config) *Reloader {
	r := &Reloader{
		configPath: configPath,
		dotenvPath: dotenvPath,
	}
	r.current.Store(initial)
	return r
}

// Current returns the current config (lock-free atomic read).
func (r *Reloader) Current() *Config {
	return r.current.Load()
}

// OnReload registers a listener.
func (r *Reloader) OnReload(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Reload re-reads the .env file and the config. A missing config file
// reloads the defaults. On error the current config is kept.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	env, err := LoadDotenv(r.dotenvPath, true)
	if err != nil {
		return fmt.Errorf("reload dotenv: %w", err)
	}
	next, err := LoadOrDefault(r.configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	prev := r.current.Swap(next)
	changed := Changed(prev, next)
	slog.Info("config reloaded", "path", r.configPath, "changed", changed, "env", len(env))
	if len(changed) == 0 {
		return nil
	}
	for _, fn := range r.listeners {
		fn(prev, next, changed)
	}
	return nil
}

// Changed lists the sections that differ between a and b.
func Changed(a, b *Config) []string {
	var out []string
	if a.Limits != b.Limits {
		out = append(out, SectionLimits)
	}
	if a.Output != b.Output {
		out = append(out, SectionOutput)
	}
	if a.Gateway != b.Gateway {
		out = append(out, SectionGateway)
	}
	if a.Events != b.Events {
		out = append(out, SectionEvents)
	}
	return out
}
