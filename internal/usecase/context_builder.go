package usecase

import (
	"encoding/csv"
	"fmt"
	"strings"

	"medrag/internal/domain"
)

const chunkSeparator = "\n\n---\n\n"

// ContextAssembler renders retrieved chunks into the prompt context
// block consumed by the generator.
type ContextAssembler struct {
	maxChunks int
}

// NewContextAssembler bounds the context window to maxChunks chunks.
func NewContextAssembler(maxChunks int) *ContextAssembler {
	return &ContextAssembler{maxChunks: maxChunks}
}

// Build renders the context string. The chunk list is truncated to the
// window size before empty-text chunks are skipped, so a window full of
// empty chunks yields an empty context even when usable chunks follow.
func (a *ContextAssembler) Build(chunks []domain.ContextChunk) string {
	if a.maxChunks >= 0 && len(chunks) > a.maxChunks {
		chunks = chunks[:a.maxChunks]
	}

	blocks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		blocks = append(blocks, renderChunk(chunk))
	}
	return strings.Join(blocks, chunkSeparator)
}

func renderChunk(chunk domain.ContextChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s, Page: %d\n", chunk.DocumentID, chunk.Page)
	fmt.Fprintf(&b, "Content: %s", chunk.Text)

	if len(chunk.Tables) > 0 {
		b.WriteString("\n\nRelevant Tables on this Page:")
		for i, table := range chunk.Tables {
			md := csvToMarkdown(table.CSV)
			if md == "" {
				continue
			}
			fmt.Fprintf(&b, "\n\nTable %d:\n%s", i+1, md)
		}
	}
	return b.String()
}

// csvToMarkdown renders raw CSV rows as a markdown table with the first
// row as the header. Unparseable or empty input renders as nothing.
func csvToMarkdown(raw string) string {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil || len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for _, cell := range row {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(cell))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for range rows[0] {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}
