package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/events"
	"github.com/dohr-michael/dbtsel/internal/export"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

// Tool names.
const (
	ToolAddSelector     = "add_selector"
	ToolRemoveSelector  = "remove_selector"
	ToolListSelectors   = "list_selectors"
	ToolRenderSelectors = "render_selectors"
	ToolResetSelectors  = "reset_selectors"
)

// Tool is a ToolSpec plus the function answering calls. args is the raw JSON
// argument object.
type Tool struct {
	Spec ToolSpec
	Run  func(ctx context.Context, args string) (string, error)
}

// Tools operates on a single selector collection. When a path is set the
// collection is read from it on creation and written back after every
// change.
type Tools struct {
	mu         sync.Mutex
	collection *selectors.Collection
	path       string
	indent     int
	bus        *events.Bus
}

// Options configures Tools.
type Options struct {
	// Path of the selectors.yml backing the collection. Empty keeps the
	// collection in memory.
	Path   string
	Indent int
	// Bus receives selector events. May be nil.
	Bus *events.Bus
}

// NewTools creates the tool set, loading opts.Path when it exists.
func NewTools(b *criteria.Builder, opts Options) (*Tools, error) {
	t := &Tools{
		collection: selectors.NewCollection(b),
		path:       opts.Path,
		indent:     opts.Indent,
		bus:        opts.Bus,
	}
	if t.path == "" {
		return t, nil
	}
	existing, err := export.ReadFile(t.path, b)
	if err != nil {
		return nil, err
	}
	if err := t.collection.Load(existing); err != nil {
		return nil, fmt.Errorf("load %s: %w", t.path, err)
	}
	slog.Debug("selectors loaded", "path", t.path, "selectors", len(existing))
	return t, nil
}

// Collection returns the underlying collection.
func (t *Tools) Collection() *selectors.Collection {
	return t.collection
}

// List returns every tool in a stable order.
func (t *Tools) List() []Tool {
	return []Tool{
		{
			Spec: ToolSpec{
				Name:        ToolAddSelector,
				Description: "Add a dbt selector. definition is an inline string such as \"tag:nightly\", a single {method: value} object, or a criterion object with method/value, union, intersection and exclude keys.",
				Parameters: map[string]ParamSpec{
					"name":        {Type: "string", Description: "Selector name", Required: true},
					"description": {Type: "string", Description: "Human-readable description"},
					"default":     {Type: "boolean", Description: "Use as the project's default selector", Default: false},
					"definition":  {Description: "Selector definition", Required: true},
				},
			},
			Run: t.add,
		},
		{
			Spec: ToolSpec{
				Name:        ToolRemoveSelector,
				Description: "Remove the selector at a zero-based index. Later selectors shift down by one.",
				Parameters: map[string]ParamSpec{
					"index": {Type: "integer", Description: "Zero-based selector index", Required: true},
				},
			},
			Run: t.remove,
		},
		{
			Spec: ToolSpec{Name: ToolListSelectors, Description: "List selectors with their index, name and definition mode."},
			Run:  t.list,
		},
		{
			Spec: ToolSpec{Name: ToolRenderSelectors, Description: "Render the selectors.yml document."},
			Run:  t.render,
		},
		{
			Spec: ToolSpec{Name: ToolResetSelectors, Description: "Remove every selector."},
			Run:  t.reset,
		},
	}
}

type addArgs struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Default     bool            `json:"default"`
	Definition  json.RawMessage `json:"definition"`
}

func (t *Tools) add(_ context.Context, args string) (string, error) {
	var a addArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if len(a.Definition) == 0 {
		return "", &criteria.ValidationError{Field: "definition", Reason: "is required"}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	def, err := selectors.ParseDefinition(a.Definition, t.collection.Builder())
	if err != nil {
		return "", err
	}
	sel, err := t.collection.Add(selectors.Meta{Name: a.Name, Description: a.Description, Default: a.Default}, def)
	if err != nil {
		return "", err
	}
	index := t.collection.Len() - 1
	if err := t.save(); err != nil {
		_, rerr := t.collection.Remove(index)
		t.rollback(ToolAddSelector, rerr)
		return "", err
	}
	t.publish(events.SelectorAddedPayload{Index: index, Name: sel.Name, Mode: string(def.Mode())})
	return fmt.Sprintf("Added selector %q at index %d (%s).", sel.Name, index, def.Mode()), nil
}

type removeArgs struct {
	Index *int `json:"index"`
}

func (t *Tools) remove(_ context.Context, args string) (string, error) {
	var a removeArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.Index == nil {
		return "", errors.New("index is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	before := t.collection.Selectors()
	sel, err := t.collection.Remove(*a.Index)
	if err != nil {
		return "", err
	}
	if err := t.save(); err != nil {
		t.rollback(ToolRemoveSelector, t.collection.Load(before))
		return "", err
	}
	t.publish(events.SelectorRemovedPayload{Index: *a.Index, Name: sel.Name})
	return fmt.Sprintf("Removed selector %q from index %d.", sel.Name, *a.Index), nil
}

type listEntry struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`
	Mode        string `json:"mode"`
}

func (t *Tools) list(_ context.Context, _ string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := []listEntry{}
	for i, s := range t.collection.Selectors() {
		entries = append(entries, listEntry{
			Index:       i,
			Name:        s.Name,
			Description: s.Description,
			Default:     s.Default,
			Mode:        string(s.Definition.Mode()),
		})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode selectors: %w", err)
	}
	return string(data), nil
}

func (t *Tools) render(_ context.Context, _ string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out, err := selectors.Render(t.collection.Selectors())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t *Tools) reset(_ context.Context, _ string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	before := t.collection.Selectors()
	t.collection.Clear()
	if err := t.save(); err != nil {
		t.rollback(ToolResetSelectors, t.collection.Load(before))
		return "", err
	}
	t.publish(events.SelectorsResetPayload{Removed: len(before)})
	return fmt.Sprintf("Removed %d selectors.", len(before)), nil
}

// save writes the collection to the backing file, if any.
func (t *Tools) save() error {
	if t.path == "" {
		return nil
	}
	n, err := export.WriteFile(t.path, t.collection.Selectors(), t.indent)
	if err != nil {
		return err
	}
	t.publish(events.FileWrittenPayload{Path: t.path, Selectors: t.collection.Len(), Bytes: n})
	return nil
}

// rollback reports a failed undo after a failed save. The in-memory
// collection may then differ from the file.
func (t *Tools) rollback(tool string, err error) {
	if err != nil {
		slog.Warn("rollback failed", "tool", tool, "path", t.path, "error", err)
	}
}

func (t *Tools) publish(p events.EventPayload) {
	if t.bus != nil {
		t.bus.Publish(events.NewTypedEvent(events.SourceMCP, p))
	}
}

func decodeArgs(args string, v any) error {
	if args == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
