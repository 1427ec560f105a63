package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// sentence terminators for Japanese prose plus their half-width forms.
var sentenceEnders = map[rune]bool{
	'。': true,
	'！': true,
	'？': true,
	'!':  true,
	'?':  true,
}

// splitSentences breaks text into sentences, keeping the terminator
// attached. Newlines also end a sentence so that headings and list
// items stay whole.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if sentenceEnders[r] {
			flush()
		}
	}
	flush()

	return sentences
}

// chunkText groups sentences into chunks of at most chunkSize runes.
// A single sentence longer than the budget is split at rune boundaries
// rather than dropped. Sizes are measured in runes so Japanese text is
// budgeted by character, not by byte.
func chunkText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = 500
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
		currentLen = 0
	}

	for _, sentence := range splitSentences(text) {
		n := utf8.RuneCountInString(sentence)

		if n > chunkSize {
			flush()
			for _, part := range splitRunes(sentence, chunkSize) {
				chunks = append(chunks, part)
			}
			continue
		}

		if currentLen+n > chunkSize {
			flush()
		}
		current.WriteString(sentence)
		currentLen += n
	}
	flush()

	return chunks
}

// splitRunes cuts s into pieces of at most n runes.
func splitRunes(s string, n int) []string {
	var parts []string
	runes := []rune(s)
	for len(runes) > 0 {
		take := n
		if take > len(runes) {
			take = len(runes)
		}
		parts = append(parts, string(runes[:take]))
		runes = runes[take:]
	}
	return parts
}

// chunkID builds the stable identifier for chunk n of a source file.
func chunkID(source string, n int) string {
	return fmt.Sprintf("%s_chunk_%d", source, n)
}
