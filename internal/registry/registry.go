// Package registry holds the closed set of habit sections and items the
// agenda knows how to display.
package registry

import "github.com/benvon/smart-agenda/internal/models"

// Item is a habit definition with its display metadata
type Item struct {
	Section models.Section `json:"section"`
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Icon    string         `json:"icon"`
}

type itemKey struct {
	section models.Section
	id      string
}

// Registry is an immutable, ordered catalogue of habit items
type Registry struct {
	sections []models.Section
	items    map[models.Section][]Item
	index    map[itemKey]Item
}

// New builds a registry from items. Sections appear in the order they are
// first seen and items keep their input order. Duplicate (section, id) pairs
// keep the first definition.
func New(items []Item) *Registry {
	r := &Registry{
		items: make(map[models.Section][]Item),
		index: make(map[itemKey]Item, len(items)),
	}
	for _, it := range items {
		k := itemKey{it.Section, it.ID}
		if _, dup := r.index[k]; dup {
			continue
		}
		if _, seen := r.items[it.Section]; !seen {
			r.sections = append(r.sections, it.Section)
		}
		r.items[it.Section] = append(r.items[it.Section], it)
		r.index[k] = it
	}
	return r
}

// Sections returns the sections in display order
func (r *Registry) Sections() []models.Section {
	out := make([]models.Section, len(r.sections))
	copy(out, r.sections)
	return out
}

// Items returns the items of a section in display order
func (r *Registry) Items(section models.Section) []Item {
	src := r.items[section]
	out := make([]Item, len(src))
	copy(out, src)
	return out
}

// ItemIDs returns the item ids of a section in display order
func (r *Registry) ItemIDs(section models.Section) []string {
	src := r.items[section]
	out := make([]string, len(src))
	for i, it := range src {
		out[i] = it.ID
	}
	return out
}

// Lookup returns the definition of (section, id)
func (r *Registry) Lookup(section models.Section, id string) (Item, bool) {
	it, ok := r.index[itemKey{section, id}]
	return it, ok
}

// Contains reports whether (section, id) is a known item
func (r *Registry) Contains(section models.Section, id string) bool {
	_, ok := r.index[itemKey{section, id}]
	return ok
}

// All returns every item, sections first then items, in display order
func (r *Registry) All() []Item {
	out := make([]Item, 0, len(r.index))
	for _, s := range r.sections {
		out = append(out, r.items[s]...)
	}
	return out
}
