// Package docs holds the dbt selector reference shown by the docs command.
package docs

import (
	"embed"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

//go:embed pages/*.md
var pages embed.FS

// Topic is one reference page.
type Topic struct {
	Name  string
	Title string
}

var topics = []Topic{
	{Name: "methods", Title: "Selector methods"},
	{Name: "graph", Title: "Graph operators"},
	{Name: "sets", Title: "Set operators"},
	{Name: "structures", Title: "Complex structures"},
	{Name: "examples", Title: "Examples"},
	{Name: "about", Title: "About"},
}

// Topics returns the reference pages in reading order.
func Topics() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out
}

// Markdown returns the source of a topic. An empty name returns every page.
func Markdown(name string) (string, error) {
	if name == "" {
		var parts []string
		for _, t := range topics {
			md, err := Markdown(t.Name)
			if err != nil {
				return "", err
			}
			parts = append(parts, md)
		}
		return strings.Join(parts, "\n---\n\n"), nil
	}
	for _, t := range topics {
		if t.Name == name {
			data, err := pages.ReadFile("pages/" + name + ".md")
			if err != nil {
				return "", fmt.Errorf("read topic %s: %w", name, err)
			}
			return string(data), nil
		}
	}
	return "", fmt.Errorf("unknown topic %q (available: %s)", name, strings.Join(names(), ", "))
}

// Render returns a topic styled for the terminal, wrapped at width.
func Render(name string, width int) (string, error) {
	md, err := Markdown(name)
	if err != nil {
		return "", err
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render topic: %w", err)
	}
	return out, nil
}

func names() []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.Name
	}
	return out
}
