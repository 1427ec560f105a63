// Package chat implements the query-answering pipeline: one user
// utterance plus prior conversation state in, one grounded answer out.
// Classification, retrieval, context assembly, prompt construction,
// generation and formatting are pure per request; the conversation
// store is the only mutable state and is written exactly once per
// successful turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ymatsuda/machichat/internal/classifier"
	"github.com/ymatsuda/machichat/internal/config"
	"github.com/ymatsuda/machichat/internal/retrieval"
	"github.com/ymatsuda/machichat/internal/store"
)

// Request is one user turn.
type Request struct {
	SessionID string
	Question  string
	Property  *Property // currently selected property, if any
	Template  string    // template name; empty selects the default
}

// Result is a completed turn.
type Result struct {
	Answer     FormattedAnswer
	Raw        string
	Intent     classifier.Intent
	ContextRef string
	Degraded   bool // retrieval was unavailable; answered without passages
	TurnID     string
}

// Pipeline orchestrates a turn end to end.
type Pipeline struct {
	retriever     *retrieval.Retriever
	generator     *Generator
	store         *store.Store
	templates     *TemplateStore
	historyLimit  int
	contextBudget int
	turnTimeout   time.Duration

	mu    sync.Mutex
	gates map[string]*sessionGate
}

// sessionGate serializes turns for one session. refs counts the holder
// plus any waiters so the entry can be evicted once nobody needs it.
type sessionGate struct {
	mu   sync.Mutex
	refs int
}

// NewPipeline wires the pipeline from its collaborators.
func NewPipeline(r *retrieval.Retriever, g *Generator, st *store.Store, tpls *TemplateStore, cfg config.ChatConfig) *Pipeline {
	return &Pipeline{
		retriever:     r,
		generator:     g,
		store:         st,
		templates:     tpls,
		historyLimit:  cfg.HistoryLimit,
		contextBudget: cfg.ContextBudget,
		turnTimeout:   time.Duration(cfg.TurnTimeoutSec) * time.Second,
		gates:         make(map[string]*sessionGate),
	}
}

// lockSession acquires the gate serializing turns for one session.
// Different sessions run concurrently; turns within a session never
// interleave.
func (p *Pipeline) lockSession(sessionID string) *sessionGate {
	p.mu.Lock()
	g, ok := p.gates[sessionID]
	if !ok {
		g = &sessionGate{}
		p.gates[sessionID] = g
	}
	g.refs++
	p.mu.Unlock()

	g.mu.Lock()
	return g
}

// unlockSession releases the gate and evicts it once no turn holds or
// waits on it, so the map does not grow with every session ever seen.
func (p *Pipeline) unlockSession(sessionID string, g *sessionGate) {
	g.mu.Unlock()

	p.mu.Lock()
	g.refs--
	if g.refs == 0 {
		delete(p.gates, sessionID)
	}
	p.mu.Unlock()
}

// Answer processes one turn. The whole turn runs under a single
// deadline; on expiry it fails with ErrPipelineTimeout and nothing is
// appended to the store. Retrieval failures degrade the turn instead of
// aborting it; generation failures surface as typed errors.
func (p *Pipeline) Answer(ctx context.Context, req Request) (*Result, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if req.Question == "" {
		return nil, fmt.Errorf("question is required")
	}

	gate := p.lockSession(req.SessionID)
	defer p.unlockSession(req.SessionID, gate)

	ctx, cancel := context.WithTimeout(ctx, p.turnTimeout)
	defer cancel()

	// Template problems are configuration faults; fail before spending
	// any retrieval or generation budget.
	tpl, err := p.templates.Get(req.Template)
	if err != nil {
		return nil, err
	}

	intent := classifier.Classify(req.Question)

	degraded := false
	passages, err := p.retriever.Retrieve(ctx, req.Question, intent)
	if err != nil {
		if deadlineErr := asPipelineTimeout(ctx, err); deadlineErr != nil {
			return nil, deadlineErr
		}
		// Degrade: answer from conversation history and general knowledge.
		log.Printf("chat: retrieval degraded for session %s: %v", req.SessionID, err)
		degraded = true
		passages = nil
	}

	assembled := Assemble(passages, req.Property, p.contextBudget)

	sess, err := p.store.Load(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session history: %w", err)
	}

	payload, err := Build(tpl, assembled, sess.Turns, req.Question, p.historyLimit)
	if err != nil {
		return nil, err
	}

	raw, err := p.generator.Generate(ctx, payload)
	if err != nil {
		if deadlineErr := asPipelineTimeout(ctx, err); deadlineErr != nil {
			return nil, deadlineErr
		}
		return nil, err
	}

	turn := store.Turn{
		SessionID:  req.SessionID,
		Question:   req.Question,
		Answer:     raw,
		ContextRef: assembled.Reference(),
	}
	appended, err := p.store.Append(ctx, turn)
	if err != nil {
		return nil, fmt.Errorf("recording turn: %w", err)
	}

	return &Result{
		Answer:     Format(raw),
		Raw:        raw,
		Intent:     intent,
		ContextRef: turn.ContextRef,
		Degraded:   degraded,
		TurnID:     appended.ID,
	}, nil
}

// asPipelineTimeout translates a deadline expiry into ErrPipelineTimeout.
func asPipelineTimeout(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ErrPipelineTimeout
	}
	return nil
}
