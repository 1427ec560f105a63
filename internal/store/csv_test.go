package store

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestExportImportRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	turns := []Turn{
		{SessionID: "s1", Question: "小学校は近いですか", Answer: "徒歩5分です。", ContextRef: `{"passages":[{"id":"a","score":0.9}]}`, CreatedAt: base},
		{SessionID: "s1", Question: "治安は？\n夜間も含めて", Answer: "問題ありません。", CreatedAt: base.Add(time.Minute)},
	}
	for _, turn := range turns {
		if _, err := s.Append(ctx, turn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	sess, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, sess); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "session_id,timestamp,question,answer,context_reference") {
		t.Errorf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	// Import into a fresh session and compare.
	n, err := s.ImportCSV(ctx, &buf, "s2")
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d turns, want 2", n)
	}

	imported, err := s.Load(ctx, "s2")
	if err != nil {
		t.Fatalf("Load imported: %v", err)
	}
	for i := range turns {
		if imported.Turns[i].Question != turns[i].Question {
			t.Errorf("turn %d question = %q, want %q", i, imported.Turns[i].Question, turns[i].Question)
		}
		if imported.Turns[i].Answer != turns[i].Answer {
			t.Errorf("turn %d answer = %q, want %q", i, imported.Turns[i].Answer, turns[i].Answer)
		}
		if !imported.Turns[i].CreatedAt.Equal(turns[i].CreatedAt) {
			t.Errorf("turn %d timestamp = %v, want %v", i, imported.Turns[i].CreatedAt, turns[i].CreatedAt)
		}
	}
}

func TestImportRejectsBadHeader(t *testing.T) {
	s := newTestStore(t)

	r := strings.NewReader("foo,bar\n1,2\n")
	if _, err := s.ImportCSV(context.Background(), r, "s1"); err == nil {
		t.Fatal("expected error for malformed header")
	}
}
