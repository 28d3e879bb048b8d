package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lexforge/lexrag/internal/models"
)

// sectionHeading matches statutory section headings like "Section 3.",
// "SECTION 34A:" or "Section 12 -" at the start of a line.
var sectionHeading = regexp.MustCompile(`(?mi)^section\s+(\d+[A-Za-z]{0,2})\b[.:\-]?\s*`)

// Chunker splits statute text into chunks. Text with recognizable section
// headings is split on section boundaries so each chunk cites one section;
// unsized text falls back to overlapping word windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 300
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits text for the named act into chunks with deterministic ids, so
// re-ingesting the same act overwrites rather than duplicates.
func (c *Chunker) Chunk(act, text string) []*models.Chunk {
	matches := sectionHeading.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return c.windowed(act, "", text, actSlug(act))
	}

	chunks := make([]*models.Chunk, 0, len(matches))
	for i, m := range matches {
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		section := text[m[2]:m[3]]
		body := strings.TrimSpace(text[start:end])
		if body == "" {
			continue
		}
		idBase := fmt.Sprintf("%s:s%s", actSlug(act), strings.ToLower(section))
		chunks = append(chunks, c.windowed(act, section, body, idBase)...)
	}
	return chunks
}

// windowed splits body into overlapping word windows. A body within the chunk
// size yields a single chunk with the bare idBase.
func (c *Chunker) windowed(act, section, body, idBase string) []*models.Chunk {
	words := strings.Fields(body)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= c.chunkSize {
		return []*models.Chunk{c.newChunk(act, section, idBase, body, 0, false)}
	}

	step := c.chunkSize - c.chunkOverlap
	chunks := make([]*models.Chunk, 0, (len(words)+step-1)/step)
	part := 0
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		text := strings.Join(words[i:end], " ")
		chunks = append(chunks, c.newChunk(act, section, fmt.Sprintf("%s.%d", idBase, part), text, part, true))
		part++
		if end == len(words) {
			break
		}
	}
	return chunks
}

func (c *Chunker) newChunk(act, section, id, text string, part int, multi bool) *models.Chunk {
	citation := act
	if section != "" {
		citation = fmt.Sprintf("%s, Section %s", act, section)
	}
	if multi {
		citation = fmt.Sprintf("%s (part %d)", citation, part+1)
	}
	return &models.Chunk{
		ID:             id,
		Text:           text,
		SourceCitation: citation,
		Act:            strings.ToLower(act),
		Section:        section,
	}
}

// actSlug turns an act title into a stable id prefix.
func actSlug(act string) string {
	slug := strings.ToLower(strings.TrimSpace(act))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
