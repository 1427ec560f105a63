package ingest

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText converts raw file bytes to UTF-8. Municipal documents
// arrive in a mix of encodings; valid UTF-8 passes through with any BOM
// stripped. Otherwise the common Japanese legacy encodings are tried and
// the candidate producing the most plausible Japanese text wins. Scoring
// is needed because Shift_JIS and EUC-JP overlap: EUC-JP kanji bytes
// often decode under Shift_JIS without error, but only as long runs of
// halfwidth katakana.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		return string(data), nil
	}

	candidates := []encoding.Encoding{
		japanese.ShiftJIS,
		japanese.EUCJP,
		japanese.ISO2022JP,
	}

	best := ""
	bestScore := 0
	for _, enc := range candidates {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil || !utf8.Valid(decoded) {
			continue
		}
		text := string(decoded)
		if score := plausibility(text); score > bestScore {
			best = text
			bestScore = score
		}
	}

	if bestScore <= 0 {
		return "", fmt.Errorf("unrecognized text encoding")
	}
	return best, nil
}

// plausibility scores decoded text. Replacement characters disqualify a
// candidate outright; common Japanese ranges and ASCII score positively,
// halfwidth katakana negatively since it signals a misdetected decode.
func plausibility(text string) int {
	score := 0
	for _, r := range text {
		switch {
		case r == utf8.RuneError:
			return 0
		case r >= 0x3040 && r <= 0x30FF: // hiragana and katakana
			score += 2
		case r >= 0x4E00 && r <= 0x9FFF: // CJK ideographs
			score += 2
		case r >= 0xFF61 && r <= 0xFF9F: // halfwidth katakana
			score -= 2
		case r < 0x80:
			score++
		}
	}
	return score
}
