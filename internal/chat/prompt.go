package chat

import (
	"strings"

	"github.com/ymatsuda/machichat/internal/llm"
	"github.com/ymatsuda/machichat/internal/store"
)

// PromptPayload is the fully rendered request for the generation
// service. It is deterministic: identical (template, context, history,
// question) inputs produce byte-identical messages.
type PromptPayload struct {
	Messages []llm.Message
}

// Build renders the template into a PromptPayload. History is truncated
// to the most recent historyLimit turns and inserted oldest first; the
// {history} slot expands into alternating user/assistant messages,
// {question} into the final user message, and everything else
// accumulates into system messages in layout order. Missing slots simply
// render nothing.
func Build(tpl *Template, assembled AssembledContext, history []store.Turn, question string, historyLimit int) (PromptPayload, error) {
	segs, err := tpl.parsed()
	if err != nil {
		return PromptPayload{}, err
	}

	if historyLimit >= 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	var payload PromptPayload
	var pending strings.Builder

	flush := func() {
		text := strings.TrimSpace(pending.String())
		pending.Reset()
		if text == "" {
			return
		}
		payload.Messages = append(payload.Messages, llm.Message{Role: llm.RoleSystem, Content: text})
	}

	for _, seg := range segs {
		switch {
		case seg.literal != "":
			pending.WriteString(seg.literal)
		case seg.slot == SlotSystem:
			pending.WriteString(tpl.SystemPrompt)
		case seg.slot == SlotContext:
			pending.WriteString(assembled.Block())
		case seg.slot == SlotHistory:
			flush()
			for _, turn := range history {
				payload.Messages = append(payload.Messages,
					llm.Message{Role: llm.RoleUser, Content: turn.Question},
					llm.Message{Role: llm.RoleAssistant, Content: turn.Answer},
				)
			}
		case seg.slot == SlotQuestion:
			flush()
			payload.Messages = append(payload.Messages, llm.Message{Role: llm.RoleUser, Content: question})
		}
	}
	flush()

	return payload, nil
}
