package chat

import "strings"

// Detail is one labelled supplementary section of an answer, rendered
// by the UI as an expandable panel.
type Detail struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// FormattedAnswer is the display structure of a generated answer.
type FormattedAnswer struct {
	Main    string   `json:"main"`
	Details []Detail `json:"details"`
}

// detail section markers; both the half-width and full-width colon are
// accepted since the model may emit either.
var detailMarkers = []string{"【詳細:", "【詳細："}

// Format splits raw generated text into the main answer and labelled
// detail sections. A line of the form 【詳細:ラベル】 opens a section
// running to the next marker or end of text. Malformed markers are left
// in place and fold into the surrounding text; Format never fails.
func Format(raw string) FormattedAnswer {
	lines := strings.Split(raw, "\n")

	var answer FormattedAnswer
	var mainLines []string
	var current *Detail
	var currentLines []string

	closeSection := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(currentLines, "\n"))
		answer.Details = append(answer.Details, *current)
		current = nil
		currentLines = nil
	}

	for _, line := range lines {
		label, ok := parseDetailMarker(line)
		if ok {
			closeSection()
			current = &Detail{Label: label}
			continue
		}
		if current != nil {
			currentLines = append(currentLines, line)
		} else {
			mainLines = append(mainLines, line)
		}
	}
	closeSection()

	answer.Main = strings.TrimSpace(strings.Join(mainLines, "\n"))
	return answer
}

// parseDetailMarker reports whether the line is a well-formed detail
// marker and returns its label. A marker must close with 】 and carry a
// non-empty label; anything else is ordinary text.
func parseDetailMarker(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, marker := range detailMarkers {
		if !strings.HasPrefix(trimmed, marker) {
			continue
		}
		rest := strings.TrimPrefix(trimmed, marker)
		if !strings.HasSuffix(rest, "】") {
			return "", false
		}
		label := strings.TrimSpace(strings.TrimSuffix(rest, "】"))
		if label == "" {
			return "", false
		}
		return label, true
	}
	return "", false
}
