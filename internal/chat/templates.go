package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// TemplateStore manages named, user-editable prompt templates persisted
// as a JSON file in the data directory. The デフォルト template always
// exists, falling back to the built-in one when the file has none.
type TemplateStore struct {
	path string

	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateStore loads templates from path, creating the store with
// just the built-in default when the file does not exist. Every loaded
// template is parse-validated up front so a broken layout surfaces at
// startup rather than mid-conversation.
func NewTemplateStore(path string) (*TemplateStore, error) {
	s := &TemplateStore{
		path:      path,
		templates: make(map[string]*Template),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading templates %s: %w", path, err)
		}
	} else {
		var loaded []*Template
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("parsing templates %s: %w", path, err)
		}
		for _, t := range loaded {
			if err := t.Parse(); err != nil {
				return nil, fmt.Errorf("template %q: %w", t.Name, err)
			}
			s.templates[t.Name] = t
		}
	}

	def := DefaultTemplate()
	if _, ok := s.templates[def.Name]; !ok {
		s.templates[def.Name] = def
	}

	return s, nil
}

// Get returns the template by name; the empty name selects the default.
func (s *TemplateStore) Get(name string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		name = DefaultTemplate().Name
	}
	t, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return t, nil
}

// List returns all templates ordered by name.
func (s *TemplateStore) List() []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Set validates and stores a template, then persists the file.
func (s *TemplateStore) Set(t *Template) error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if err := t.Parse(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates[t.Name] = t
	return s.save()
}

// Delete removes a named template. The default cannot be deleted.
func (s *TemplateStore) Delete(name string) error {
	if name == DefaultTemplate().Name {
		return fmt.Errorf("the default template cannot be deleted")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[name]; !ok {
		return fmt.Errorf("template %q not found", name)
	}
	delete(s.templates, name)
	return s.save()
}

// save persists all templates to the JSON file. Caller holds the lock.
func (s *TemplateStore) save() error {
	out := make([]*Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling templates: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating template directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing templates to %s: %w", s.path, err)
	}
	return nil
}
