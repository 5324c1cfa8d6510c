// Package loader defines the external Loader contract (spec §6) that
// include/extends/import resolve names through. Concrete filesystem/HTTP
// loaders are deliberately out of scope (spec §1); this package carries
// only the interface plus an in-memory MapLoader used by the engine's own
// tests and by callers happy to provide templates as Go strings.
package loader

import "github.com/cascada-go/cascada/errors"

// Source is the result of resolving a template name: its text, the path it
// resolved to (the engine uses it as the template's name in error locations
// and as its AST cache key), and a NoCache flag. The engine's AST cache does
// not consult NoCache: a parsed template is cached by Path either way.
type Source struct {
	Src     string
	Path    string
	NoCache bool
}

// Loader resolves a template name to its source. The engine calls it on
// every include, extends and RenderTemplate lookup, passing the name as
// written; names are not resolved relative to the including template.
type Loader interface {
	GetSource(name string) (Source, error)
}

// MapLoader is an in-memory Loader backed by a plain map, the dialect of
// loader spec §1 calls "external collaborators... defined only by their
// interface" — useful for embedding templates or for tests, never for
// reading off a real filesystem.
type MapLoader map[string]string

// GetSource implements Loader.
func (m MapLoader) GetSource(name string) (Source, error) {
	src, ok := m[name]
	if !ok {
		return Source{}, errors.NewTemplateNotFoundError(name, nil)
	}
	return Source{Src: src, Path: name}, nil
}
