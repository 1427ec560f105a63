package chat

import (
	"path/filepath"
	"testing"
)

func newTestTemplateStore(t *testing.T) (*TemplateStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompt_templates.json")
	ts, err := NewTemplateStore(path)
	if err != nil {
		t.Fatalf("NewTemplateStore: %v", err)
	}
	return ts, path
}

func TestTemplateStoreDefaultAlwaysPresent(t *testing.T) {
	ts, _ := newTestTemplateStore(t)

	tpl, err := ts.Get("")
	if err != nil {
		t.Fatalf("Get default: %v", err)
	}
	if tpl.Name != "デフォルト" {
		t.Errorf("default name = %q", tpl.Name)
	}
}

func TestTemplateStoreSetAndReload(t *testing.T) {
	ts, path := newTestTemplateStore(t)

	custom := &Template{
		Name:         "簡潔",
		SystemPrompt: "簡潔に回答してください。",
		Layout:       "{system}\n\n{context}\n\n{question}",
	}
	if err := ts.Set(custom); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh store must see the persisted template.
	reloaded, err := NewTemplateStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, err := reloaded.Get("簡潔")
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if got.SystemPrompt != custom.SystemPrompt {
		t.Errorf("system prompt not persisted: %q", got.SystemPrompt)
	}
}

func TestTemplateStoreRejectsInvalidLayout(t *testing.T) {
	ts, _ := newTestTemplateStore(t)

	err := ts.Set(&Template{Name: "壊れた", Layout: "{nope}"})
	if err == nil {
		t.Fatal("expected validation error for unknown slot")
	}
}

func TestTemplateStoreDeleteDefaultForbidden(t *testing.T) {
	ts, _ := newTestTemplateStore(t)

	if err := ts.Delete("デフォルト"); err == nil {
		t.Fatal("deleting the default template must fail")
	}
}

func TestTemplateStoreDelete(t *testing.T) {
	ts, _ := newTestTemplateStore(t)

	if err := ts.Set(&Template{Name: "一時", Layout: "{question}"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := ts.Delete("一時"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := ts.Get("一時"); err == nil {
		t.Fatal("deleted template still resolvable")
	}
}
