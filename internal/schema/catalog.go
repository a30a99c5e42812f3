package schema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// ErrNotFound is returned when a schema name is not in the catalog.
var ErrNotFound = errors.New("schema not found")

// Catalog holds schemas by name.
type Catalog struct {
	schemas map[string]*Schema
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{schemas: make(map[string]*Schema)}
}

// Builtin returns a catalog with the schemas shipped with the binary.
func Builtin() (*Catalog, error) {
	c := NewCatalog()
	if err := c.loadFS(builtinFS, "builtin"); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDir adds every *.yaml and *.yml file in dir. A schema with the same
// name as an existing one replaces it.
func (c *Catalog) LoadDir(dir string) error {
	return c.loadFS(os.DirFS(dir), ".")
}

func (c *Catalog) loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		name := filepath.ToSlash(filepath.Join(root, e.Name()))
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		s, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		c.Add(s)
	}
	return nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Add stores s under its name.
func (c *Catalog) Add(s *Schema) {
	c.schemas[s.Name] = s
}

// Get returns the schema called name.
func (c *Catalog) Get(name string) (*Schema, error) {
	s, ok := c.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// Names returns the schema names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the schemas sorted by name.
func (c *Catalog) List() []*Schema {
	out := make([]*Schema, 0, len(c.schemas))
	for _, name := range c.Names() {
		out = append(out, c.schemas[name])
	}
	return out
}

// Resolve returns the catalog schema called ref, or loads ref as a file path
// when it names an existing file.
func (c *Catalog) Resolve(ref string) (*Schema, error) {
	if s, ok := c.schemas[ref]; ok {
		return s, nil
	}
	if isYAML(ref) {
		if _, err := os.Stat(ref); err == nil {
			return Load(ref)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}
