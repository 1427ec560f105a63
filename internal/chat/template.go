package chat

import "strings"

// Slot names the template layout may reference.
const (
	SlotSystem   = "system"
	SlotContext  = "context"
	SlotHistory  = "history"
	SlotQuestion = "question"
)

var validSlots = map[string]bool{
	SlotSystem:   true,
	SlotContext:  true,
	SlotHistory:  true,
	SlotQuestion: true,
}

// Template is a user-editable prompt template. Layout is a text with
// {slot} placeholders over the fixed vocabulary {system, context,
// history, question}; it is parsed once and validated, so an unknown
// slot fails fast instead of substituting blanks at build time.
type Template struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	Layout       string `json:"layout"`

	segments []segment
}

// segment is either a literal or a slot reference, never both.
type segment struct {
	literal string
	slot    string
}

// DefaultSystemPrompt grounds the assistant's role and the detail-section
// convention the formatter relies on.
const DefaultSystemPrompt = `あなたは地域情報に詳しい不動産アシスタントです。
参照文脈と物件情報に基づいて、正確かつ丁寧な日本語で回答してください。
文脈に含まれない情報については、その旨を明示してください。
補足情報がある場合は「【詳細:ラベル】」で始まる行に続けて記載してください。`

// DefaultLayout is the built-in prompt layout.
const DefaultLayout = `{system}

参照文脈:
{context}

{history}

{question}`

// DefaultTemplate returns the built-in template (named デフォルト, as the
// template file convention expects).
func DefaultTemplate() *Template {
	t := &Template{
		Name:         "デフォルト",
		SystemPrompt: DefaultSystemPrompt,
		Layout:       DefaultLayout,
	}
	// The built-in layout only uses valid slots.
	_ = t.Parse()
	return t
}

// Parse scans the layout into segments and validates every referenced
// slot. It returns a *TemplateError on the first unknown slot name. An
// unclosed brace at the end of the layout is kept as literal text.
func (t *Template) Parse() error {
	var segs []segment
	layout := t.Layout

	for {
		open := strings.IndexByte(layout, '{')
		if open < 0 {
			break
		}
		close := strings.IndexByte(layout[open:], '}')
		if close < 0 {
			break
		}
		close += open

		name := layout[open+1 : close]
		if !isSlotName(name) {
			return &TemplateError{Slot: name}
		}

		if open > 0 {
			segs = append(segs, segment{literal: layout[:open]})
		}
		segs = append(segs, segment{slot: name})
		layout = layout[close+1:]
	}

	if layout != "" {
		segs = append(segs, segment{literal: layout})
	}

	t.segments = segs
	return nil
}

// parsed returns the template's segments, parsing lazily when needed.
func (t *Template) parsed() ([]segment, error) {
	if t.segments == nil {
		if err := t.Parse(); err != nil {
			return nil, err
		}
	}
	return t.segments, nil
}

func isSlotName(name string) bool {
	return validSlots[name]
}
