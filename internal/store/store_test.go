package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ymatsuda/machichat/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database)
}

func TestAppendAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	turn, err := s.Append(ctx, Turn{
		SessionID:  "s1",
		Question:   "治安はどうですか",
		Answer:     "落ち着いた住宅街です。",
		ContextRef: `{"passages":[]}`,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if turn.ID == "" {
		t.Error("append should assign an id")
	}
	if turn.CreatedAt.IsZero() {
		t.Error("append should assign a timestamp")
	}

	sess, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sess.Turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(sess.Turns))
	}
	got := sess.Turns[len(sess.Turns)-1]
	if got.Question != "治安はどうですか" || got.Answer != "落ち着いた住宅街です。" {
		t.Errorf("loaded turn mismatch: %+v", got)
	}
}

func TestLoadPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, Turn{
			SessionID: "s1",
			Question:  fmt.Sprintf("質問%d", i),
			Answer:    fmt.Sprintf("回答%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	sess, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i, turn := range sess.Turns {
		if want := fmt.Sprintf("質問%d", i); turn.Question != want {
			t.Errorf("position %d: got %q, want %q", i, turn.Question, want)
		}
	}
}

func TestLoadUnknownSessionEmpty(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sess.Turns) != 0 {
		t.Errorf("unknown session should be empty, got %d turns", len(sess.Turns))
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Append(ctx, Turn{SessionID: "s1", Question: "q", Answer: "a"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	sess, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sess.Turns) != 0 {
		t.Errorf("cleared session still has %d turns", len(sess.Turns))
	}

	ids, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	for _, id := range ids {
		if id == "s1" {
			t.Error("cleared session still listed")
		}
	}
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(ctx, Turn{
				SessionID: "s1",
				Question:  fmt.Sprintf("質問%d", i),
				Answer:    "回答",
			})
			if err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	sess, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sess.Turns) != n {
		t.Errorf("expected %d turns, got %d", n, len(sess.Turns))
	}
}

func TestSessionLocksEvictedWhenIdle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := fmt.Sprintf("s%d", i%3)
			if _, err := s.Append(ctx, Turn{SessionID: sid, Question: "q", Answer: "a"}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if err := s.Clear(ctx, "s0"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.locks) != 0 {
		t.Errorf("session locks not evicted: %d entries remain", len(s.locks))
	}
}
