package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as human-readable text for the CLI.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "該当する文書が見つかりませんでした。"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d件の文書が見つかりました:\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- %d件目 (類似度: %.4f) ---\n", i+1, r.Similarity))

		if r.Document.Metadata.Source != "" {
			sb.WriteString(fmt.Sprintf("出典: %s (chunk %d)\n", r.Document.Metadata.Source, r.Document.Metadata.ChunkID))
		}
		if r.Document.Metadata.Category != "" {
			sb.WriteString(fmt.Sprintf("カテゴリ: %s\n", r.Document.Metadata.Category))
		}
		if r.Document.Metadata.Municipality != "" {
			sb.WriteString(fmt.Sprintf("市区町村: %s\n", r.Document.Metadata.Municipality))
		}

		sb.WriteString("\n")
		sb.WriteString(r.Document.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
