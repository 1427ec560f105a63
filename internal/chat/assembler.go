package chat

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ymatsuda/machichat/internal/retrieval"
)

// Property is the property record the user currently has selected.
// Supplied by the UI layer; read-only here except for the truncation flag.
type Property struct {
	ID        string
	Content   string
	Truncated bool
}

// AssembledContext is the bounded context block handed to the prompt
// builder: the selected property (if any) followed by passages in
// descending relevance order. Size counts content runes and never
// exceeds Budget.
type AssembledContext struct {
	Passages []retrieval.Passage
	Property *Property
	Budget   int
	Size     int
}

// Assemble builds a context block from retrieved passages within a rune
// budget. Duplicate passages (same source id) keep only the
// highest-scoring instance. A selected property consumes budget first
// and is always included; if it alone exceeds the budget it is truncated
// to fit and flagged. The result is deterministic for identical inputs.
func Assemble(passages []retrieval.Passage, prop *Property, budget int) AssembledContext {
	ctx := AssembledContext{Budget: budget}
	remaining := budget

	if prop != nil {
		p := *prop
		if size := utf8.RuneCountInString(p.Content); size > remaining {
			p.Content = truncateRunes(p.Content, remaining)
			p.Truncated = true
		}
		used := utf8.RuneCountInString(p.Content)
		remaining -= used
		ctx.Size += used
		ctx.Property = &p
	}

	// Deduplicate by source id, keeping the best score. First occurrence
	// order is preserved so equal-score ties stay stable.
	seen := make(map[string]int)
	unique := make([]retrieval.Passage, 0, len(passages))
	for _, p := range passages {
		if idx, ok := seen[p.ID]; ok {
			if p.Score > unique[idx].Score {
				unique[idx] = p
			}
			continue
		}
		seen[p.ID] = len(unique)
		unique = append(unique, p)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})

	// Greedy fill: stop at the first passage that would overflow.
	for _, p := range unique {
		size := utf8.RuneCountInString(p.Content)
		if size > remaining {
			break
		}
		ctx.Passages = append(ctx.Passages, p)
		remaining -= size
		ctx.Size += size
	}

	return ctx
}

// Block renders the context as the text inserted into the prompt's
// context slot. Metadata lines precede each passage so the model can
// ground its answer in source attributes, mirroring how documents were
// indexed.
func (c *AssembledContext) Block() string {
	var sb strings.Builder

	if c.Property != nil {
		sb.WriteString("物件情報:\n")
		sb.WriteString(c.Property.Content)
		if c.Property.Truncated {
			sb.WriteString("\n（物件情報は一部省略されています）")
		}
	}

	for _, p := range c.Passages {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if p.Metadata.Category != "" {
			sb.WriteString("カテゴリ: " + p.Metadata.Category + "\n")
		}
		if p.Metadata.Municipality != "" {
			sb.WriteString("市区町村: " + p.Metadata.Municipality + "\n")
		}
		sb.WriteString(p.Content)
	}

	return sb.String()
}

// contextRef is the persisted reference to an assembled context.
type contextRef struct {
	PropertyID string         `json:"property_id,omitempty"`
	Truncated  bool           `json:"truncated,omitempty"`
	Passages   []passageRef   `json:"passages"`
}

type passageRef struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// Reference returns a compact JSON description of the context (passage
// ids and scores, property id) stored with the turn for auditability.
func (c *AssembledContext) Reference() string {
	ref := contextRef{Passages: make([]passageRef, 0, len(c.Passages))}
	if c.Property != nil {
		ref.PropertyID = c.Property.ID
		ref.Truncated = c.Property.Truncated
	}
	for _, p := range c.Passages {
		ref.Passages = append(ref.Passages, passageRef{ID: p.ID, Score: p.Score})
	}

	b, err := json.Marshal(ref)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
