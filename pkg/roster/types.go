// Package roster provides the canonical person records that mentions are
// resolved against. A roster is scoped to a project and keyed by email, the
// only identifier assumed stable across systems; display names and aliases
// are matching inputs, never join keys.
package roster

import (
	"context"
	"strings"
)

// Entry is a canonical person record.
type Entry struct {
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Email       string   `json:"email" yaml:"email"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Role        string   `json:"role,omitempty" yaml:"role,omitempty"`

	// External-system handles, optional.
	ChatHandle string `json:"chat_handle,omitempty" yaml:"chat_handle,omitempty"`
	CalendarID string `json:"calendar_id,omitempty" yaml:"calendar_id,omitempty"`
}

// Valid reports whether the entry carries the minimum required fields.
func (e Entry) Valid() bool {
	return strings.TrimSpace(e.Email) != "" && strings.TrimSpace(e.DisplayName) != ""
}

// Names returns the display name followed by all aliases.
func (e Entry) Names() []string {
	names := make([]string, 0, len(e.Aliases)+1)
	names = append(names, e.DisplayName)
	names = append(names, e.Aliases...)
	return names
}

// Provider returns the current roster for a project. Implementations may
// return different results between calls; the resolution engine treats the
// roster as authoritative at call time and never caches it.
type Provider interface {
	Entries(ctx context.Context, projectID string) ([]Entry, error)
}

// StaticProvider serves a fixed roster regardless of project. Useful for the
// CLI (roster loaded from a file) and for tests.
type StaticProvider struct {
	entries []Entry
}

// NewStaticProvider creates a provider over a fixed set of entries.
func NewStaticProvider(entries []Entry) *StaticProvider {
	return &StaticProvider{entries: entries}
}

// Entries implements Provider.
func (p *StaticProvider) Entries(_ context.Context, _ string) ([]Entry, error) {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out, nil
}

// FindByEmail returns the entry with the given email, or nil.
func FindByEmail(entries []Entry, email string) *Entry {
	for i := range entries {
		if strings.EqualFold(entries[i].Email, email) {
			return &entries[i]
		}
	}
	return nil
}
