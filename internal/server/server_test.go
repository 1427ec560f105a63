package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ymatsuda/machichat/internal/chat"
	"github.com/ymatsuda/machichat/internal/config"
	"github.com/ymatsuda/machichat/internal/db"
	"github.com/ymatsuda/machichat/internal/llm"
	"github.com/ymatsuda/machichat/internal/property"
	"github.com/ymatsuda/machichat/internal/retrieval"
	"github.com/ymatsuda/machichat/internal/store"
	"github.com/ymatsuda/machichat/internal/vectordb"
)

type mockEmbedder struct{ dims int }

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.dims)
		for j, ch := range text {
			vec[(int(ch)+j)%m.dims] += 1.0
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}
		results[i] = vec
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

type fixedProvider struct{ content string }

func (p *fixedProvider) Name() string { return "fixed" }

func (p *fixedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: p.content}, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	return newTestServerWithProvider(t, &fixedProvider{content: "回答です。"})
}

func newTestServerWithProvider(t *testing.T, provider llm.Provider) (*Server, *store.Store) {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	templates, err := chat.NewTemplateStore(filepath.Join(t.TempDir(), "templates.json"))
	if err != nil {
		t.Fatalf("NewTemplateStore: %v", err)
	}

	vectors := vectordb.NewStore(&mockEmbedder{dims: 64})
	convStore := store.New(database)
	retriever := retrieval.New(vectors, config.RetrievalConfig{TopK: 10, SimilarityThreshold: 0.7})
	generator := chat.NewGenerator(provider, "test-model", config.ChatConfig{MaxAttempts: 3})
	pipeline := chat.NewPipeline(retriever, generator, convStore, templates, config.ChatConfig{
		ContextBudget:  2000,
		HistoryLimit:   10,
		TurnTimeoutSec: 5,
		MaxAttempts:    3,
	})

	srv := New(config.ServerConfig{Port: 0}, pipeline, convStore, property.NewService(vectors), templates)
	return srv, convStore
}

func doRequest(t *testing.T, srv *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSessionHistoryEndpoints(t *testing.T) {
	srv, convStore := newTestServer(t)
	ctx := context.Background()

	if _, err := convStore.Append(ctx, store.Turn{
		SessionID: "s1",
		Question:  "治安はどうですか",
		Answer:    "落ち着いた地域です。",
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/sessions/s1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var sess store.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(sess.Turns) != 1 || sess.Turns[0].Question != "治安はどうですか" {
		t.Errorf("unexpected history: %+v", sess)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/sessions/s1/history.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("csv content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "治安はどうですか") {
		t.Error("csv missing question")
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/sessions/s1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}

	cleared, err := convStore.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cleared.Turns) != 0 {
		t.Errorf("history not cleared: %d turns remain", len(cleared.Turns))
	}
}

func TestTemplateEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/templates", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "デフォルト") {
		t.Error("default template missing from listing")
	}

	body := `{"system_prompt":"簡潔に。","layout":"{system}\n{context}\n{question}"}`
	rec = doRequest(t, srv, http.MethodPut, "/api/templates/brief", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", rec.Code, rec.Body.String())
	}

	// Invalid layout rejected.
	rec = doRequest(t, srv, http.MethodPut, "/api/templates/bad", `{"layout":"{nope}"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid layout accepted: %d", rec.Code)
	}

	// Default template protected.
	rec = doRequest(t, srv, http.MethodDelete, "/api/templates/"+url.PathEscape("デフォルト"), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("default deletion status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/templates/brief", "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
}

func TestListPropertiesEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/properties", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string][]property.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp["properties"] == nil {
		t.Error("properties should be an empty array, not null")
	}
}

// awaitCancelProvider signals when a completion starts and reports how
// its context ended.
type awaitCancelProvider struct {
	started  chan struct{}
	released chan error
}

func (p *awaitCancelProvider) Name() string { return "await-cancel" }

func (p *awaitCancelProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	close(p.started)
	<-ctx.Done()
	p.released <- ctx.Err()
	return nil, ctx.Err()
}

func TestWebSocketDisconnectAbandonsTurn(t *testing.T) {
	provider := &awaitCancelProvider{
		started:  make(chan struct{}),
		released: make(chan error, 1),
	}
	srv, _ := newTestServerWithProvider(t, provider)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	ask := `{"type":"ask","session_id":"s1","content":"治安はどうですか"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ask)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-provider.started:
	case <-time.After(2 * time.Second):
		t.Fatal("turn never reached the provider")
	}

	conn.Close()

	select {
	case err := <-provider.released:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("turn context ended with %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight turn not abandoned after disconnect")
	}
}
