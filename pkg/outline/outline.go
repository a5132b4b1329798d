// Package outline models hierarchical document outlines (tables of
// contents): recursive entries, flattened views with full paths, and a
// JSON Schema describing the structure for validation of extracted
// outlines. It has no coupling to the execution engine.
package outline

// Entry is a hierarchical TOC entry.
type Entry struct {
	Title     string   `json:"title"`
	Level     int      `json:"level"`
	Page      *string  `json:"page,omitempty"`
	EntryType *string  `json:"entry_type,omitempty"`
	Children  []*Entry `json:"children,omitempty"`
}

// NewEntry creates an entry with a title and level.
func NewEntry(title string, level int) *Entry {
	return &Entry{Title: title, Level: level}
}

// WithPage returns a copy with the page label set.
func (e *Entry) WithPage(page string) *Entry {
	dup := *e
	dup.Page = &page
	return &dup
}

// WithType returns a copy with the entry type set.
func (e *Entry) WithType(entryType string) *Entry {
	dup := *e
	dup.EntryType = &entryType
	return &dup
}

// AddChild appends a child entry.
func (e *Entry) AddChild(child *Entry) {
	e.Children = append(e.Children, child)
}

// Flatten returns the entry and all descendants depth-first, each with
// its full title path from this entry down.
func (e *Entry) Flatten() []FlatEntry {
	var results []FlatEntry
	e.flattenInto(nil, &results)
	return results
}

func (e *Entry) flattenInto(path []string, results *[]FlatEntry) {
	current := make([]string, 0, len(path)+1)
	current = append(current, path...)
	current = append(current, e.Title)
	*results = append(*results, FlatEntry{
		Title:     e.Title,
		Level:     e.Level,
		Page:      e.Page,
		EntryType: e.EntryType,
		Path:      current,
	})
	for _, child := range e.Children {
		child.flattenInto(current, results)
	}
}

// FlatEntry is a flattened outline entry with its full hierarchical path.
type FlatEntry struct {
	Title     string   `json:"title"`
	Level     int      `json:"level"`
	Path      []string `json:"path"`
	Page      *string  `json:"page,omitempty"`
	EntryType *string  `json:"entry_type,omitempty"`
}

// Metadata carries statistics about a document outline.
type Metadata struct {
	TotalEntries   int     `json:"total_entries"`
	Levels         int     `json:"levels"`
	HasLeaders     bool    `json:"has_leaders"`
	NumberingStyle *string `json:"numbering_style,omitempty"`
	PageStyle      *string `json:"page_style,omitempty"`
	StructureType  *string `json:"structure_type,omitempty"`
}

// Listing is a complete TOC for one document.
type Listing struct {
	DocumentTitle *string  `json:"document_title,omitempty"`
	Entries       []*Entry `json:"entries"`
	Confidence    float64  `json:"confidence"`
	Metadata      Metadata `json:"metadata"`
}

// NewListing creates an empty listing with full confidence.
func NewListing() *Listing {
	return &Listing{Confidence: 1.0}
}

// Flatten returns every entry in the listing depth-first with full paths.
func (l *Listing) Flatten() []FlatEntry {
	var results []FlatEntry
	for _, entry := range l.Entries {
		results = append(results, entry.Flatten()...)
	}
	return results
}

// EntriesAtLevel collects every entry (at any depth) with the given level.
func (l *Listing) EntriesAtLevel(level int) []*Entry {
	var collect func(entries []*Entry) []*Entry
	collect = func(entries []*Entry) []*Entry {
		var found []*Entry
		for _, e := range entries {
			if e.Level == level {
				found = append(found, e)
			}
			found = append(found, collect(e.Children)...)
		}
		return found
	}
	return collect(l.Entries)
}

// MaxDepth returns the deepest level reached by any entry, or 0 for an
// empty listing.
func (l *Listing) MaxDepth() int {
	var depth func(e *Entry) int
	depth = func(e *Entry) int {
		if len(e.Children) == 0 {
			return e.Level
		}
		max := 0
		for _, c := range e.Children {
			if d := depth(c); d > max {
				max = d
			}
		}
		return max
	}
	max := 0
	for _, e := range l.Entries {
		if d := depth(e); d > max {
			max = d
		}
	}
	return max
}

// Schema returns the JSON Schema describing a serialized Listing.
func Schema() map[string]any {
	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title":   "Table of Contents",
		"type":    "object",
		"properties": map[string]any{
			"document_title": map[string]any{"type": []any{"string", "null"}},
			"entries": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/definitions/OutlineEntry"},
			},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"metadata":   map[string]any{"$ref": "#/definitions/OutlineMetadata"},
		},
		"required": []any{"entries", "confidence"},
		"definitions": map[string]any{
			"OutlineEntry": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":      map[string]any{"type": "string"},
					"page":       map[string]any{"type": []any{"string", "null"}},
					"level":      map[string]any{"type": "integer", "minimum": 0, "maximum": 10},
					"entry_type": map[string]any{"type": []any{"string", "null"}},
					"children": map[string]any{
						"type":  "array",
						"items": map[string]any{"$ref": "#/definitions/OutlineEntry"},
					},
				},
				"required": []any{"title", "level"},
			},
			"OutlineMetadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"numbering_style": map[string]any{"type": []any{"string", "null"}},
					"has_leaders":     map[string]any{"type": "boolean"},
					"page_style":      map[string]any{"type": []any{"string", "null"}},
					"total_entries":   map[string]any{"type": "integer", "minimum": 0},
					"levels":          map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
					"structure_type":  map[string]any{"type": []any{"string", "null"}},
				},
				"required": []any{"has_leaders", "total_entries", "levels"},
			},
		},
	}
}
