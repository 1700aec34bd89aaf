package selectors

import (
	"fmt"
	"slices"

	"github.com/dohr-michael/dbtsel/internal/criteria"
)

// IndexError reports a selector index outside the collection.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("selector index %d out of range [0, %d)", e.Index, e.Len)
}

// Collection is an ordered list of selectors. Insertion order is kept and
// duplicate names are allowed. A Collection is not safe for concurrent use.
type Collection struct {
	builder *criteria.Builder
	items   []Selector
}

// NewCollection returns an empty collection validating structured
// definitions with b.
func NewCollection(b *criteria.Builder) *Collection {
	return &Collection{builder: b}
}

// Builder returns the builder validating structured definitions.
func (c *Collection) Builder() *criteria.Builder {
	return c.builder
}

// Add appends a selector built from meta and def. The collection is left
// unchanged on error.
func (c *Collection) Add(meta Meta, def Definition) (Selector, error) {
	if err := validateMeta(meta); err != nil {
		return Selector{}, err
	}
	if err := validateDefinition(c.builder, def); err != nil {
		return Selector{}, err
	}
	s := newSelector(meta, def)
	c.items = append(c.items, s)
	return s, nil
}

// Remove deletes the selector at index. Later selectors shift down by one.
func (c *Collection) Remove(index int) (Selector, error) {
	if index < 0 || index >= len(c.items) {
		return Selector{}, &IndexError{Index: index, Len: len(c.items)}
	}
	s := c.items[index]
	c.items = slices.Delete(c.items, index, index+1)
	return s, nil
}

// At returns the selector at index.
func (c *Collection) At(index int) (Selector, error) {
	if index < 0 || index >= len(c.items) {
		return Selector{}, &IndexError{Index: index, Len: len(c.items)}
	}
	return c.items[index], nil
}

// Clear removes every selector.
func (c *Collection) Clear() {
	c.items = nil
}

// Len returns the number of selectors.
func (c *Collection) Len() int {
	return len(c.items)
}

// Selectors returns a copy of the selectors in order.
func (c *Collection) Selectors() []Selector {
	return slices.Clone(c.items)
}

// Load replaces the collection with selectors, validating each one first.
// Nothing changes if any selector is invalid.
func (c *Collection) Load(selectors []Selector) error {
	for i, s := range selectors {
		if err := validateMeta(s.Meta()); err != nil {
			return fmt.Errorf("selector %d: %w", i, err)
		}
		if err := validateDefinition(c.builder, s.Definition); err != nil {
			return fmt.Errorf("selector %d (%s): %w", i, s.Name, err)
		}
	}
	c.items = slices.Clone(selectors)
	return nil
}
