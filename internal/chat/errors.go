package chat

import (
	"errors"
	"fmt"

	"github.com/ymatsuda/machichat/internal/retrieval"
)

// Turn-level failure conditions. Anything that crosses the pipeline
// boundary is one of these typed errors plus a user-safe message from
// UserMessage; raw provider errors never reach the user.
var (
	// ErrAuth means the generation credential is bad or missing. Fatal,
	// never retried; requires operator intervention.
	ErrAuth = errors.New("generation service rejected credentials")

	// ErrGenerationUnavailable means the generation service stayed
	// unreachable within the retry budget.
	ErrGenerationUnavailable = errors.New("generation service is unavailable")

	// ErrInvalidResponse means the generation service returned empty or
	// malformed output. Not retried: a partial answer must never be
	// presented as complete.
	ErrInvalidResponse = errors.New("generation service returned an invalid response")

	// ErrPipelineTimeout means the end-to-end turn deadline expired.
	// Nothing is appended to the conversation store.
	ErrPipelineTimeout = errors.New("turn deadline exceeded")
)

// TemplateError reports a prompt template referencing a slot outside the
// fixed vocabulary. This is a configuration fault surfaced to whoever
// edits templates, never silently ignored.
type TemplateError struct {
	Slot string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template references unknown slot %q", e.Slot)
}

// UserMessage maps a turn failure to a message safe to show the user.
// Wording follows the tone of the rest of the assistant's Japanese output.
func UserMessage(err error) string {
	var tplErr *TemplateError
	switch {
	case errors.Is(err, ErrAuth):
		return "申し訳ありませんが、認証エラーが発生しました。管理者にお問い合わせください。"
	case errors.Is(err, ErrGenerationUnavailable):
		return "申し訳ありませんが、現在応答を生成できません。しばらくしてからもう一度お試しください。"
	case errors.Is(err, ErrInvalidResponse):
		return "申し訳ありませんが、回答の生成中にエラーが発生しました。"
	case errors.Is(err, ErrPipelineTimeout):
		return "申し訳ありませんが、応答がタイムアウトしました。もう一度お試しください。"
	case errors.Is(err, retrieval.ErrUnavailable):
		return "申し訳ありませんが、文書検索が利用できません。"
	case errors.As(err, &tplErr):
		return "申し訳ありませんが、テンプレートの設定に誤りがあります。"
	default:
		return "申し訳ありませんが、システムエラーが発生しました。"
	}
}
