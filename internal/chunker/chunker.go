// Package chunker splits raw document text into ordered, cleaned chunks
// suitable for embedding and retrieval.
package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/reglens/reglens/internal/domain"
)

var (
	// Page boundaries: form feeds or explicit "--- Page N ---" marker lines.
	pageMarkerRe = regexp.MustCompile(`(?mi)^\s*[-=]{3,}\s*page\s+\d+\s*[-=]{3,}\s*$|\f`)

	horizontalRuleRe   = regexp.MustCompile(`(?m)^\s*[-=_*]{3,}\s*$`)
	pageFooterRe       = regexp.MustCompile(`(?mi)^\s*(?:-\s*)?(?:page\s+)?\d+(?:\s+of\s+\d+)?(?:\s*-)?\s*$`)
	imagePlaceholderRe = regexp.MustCompile(`(?mi)^\s*(?:\[(?:image|figure|chart|logo)[^\]]*\]|<image[^>]*>)\s*$`)
	blankRunRe         = regexp.MustCompile(`\n{3,}`)
)

// PageChunker turns raw document text into cleaned, keyword-tagged chunks.
type PageChunker struct {
	maxKeywords int
}

// New creates a PageChunker with the default keyword cap.
func New() *PageChunker {
	return &PageChunker{maxKeywords: defaultMaxKeywords}
}

// ChunkDocument splits rawText on page boundaries, cleans each segment and
// returns the surviving chunks in order. Segments that are empty before or
// after cleaning are dropped and do not reserve an ordinal, so ordinals are
// always contiguous 1..N. A document with no surviving segments yields an
// empty slice.
func (c *PageChunker) ChunkDocument(rawText, docID string) []domain.Chunk {
	segments := splitPages(rawText)

	chunks := make([]domain.Chunk, 0, len(segments))
	ordinal := 0
	for _, seg := range segments {
		if strings.TrimSpace(seg.text) == "" {
			continue
		}
		cleaned := cleanSegment(seg.text)
		if cleaned == "" {
			continue
		}
		ordinal++
		chunks = append(chunks, domain.Chunk{
			DocumentID:    docID,
			Ordinal:       ordinal,
			Content:       cleaned,
			TokenEstimate: estimateTokens(cleaned),
			Keywords:      extractKeywords(cleaned, c.maxKeywords),
			StartOffset:   seg.start,
			EndOffset:     seg.end,
		})
	}

	return chunks
}

type segment struct {
	text  string
	start int
	end   int
}

// splitPages cuts rawText at page markers, keeping each segment's offsets
// into the original text (trimmed to its non-whitespace extent).
func splitPages(rawText string) []segment {
	if rawText == "" {
		return nil
	}

	markers := pageMarkerRe.FindAllStringIndex(rawText, -1)

	var segments []segment
	prev := 0
	for _, m := range markers {
		segments = append(segments, makeSegment(rawText, prev, m[0]))
		prev = m[1]
	}
	segments = append(segments, makeSegment(rawText, prev, len(rawText)))
	return segments
}

func makeSegment(rawText string, start, end int) segment {
	text := rawText[start:end]

	// Shrink offsets to the trimmed extent for traceability.
	trimmedLeft := strings.TrimLeftFunc(text, unicode.IsSpace)
	start += len(text) - len(trimmedLeft)
	trimmed := strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
	end = start + len(trimmed)

	return segment{text: trimmed, start: start, end: end}
}

// cleanSegment strips decorative noise and normalizes whitespace. Returns
// "" when nothing meaningful survives.
func cleanSegment(text string) string {
	text = horizontalRuleRe.ReplaceAllString(text, "")
	text = imagePlaceholderRe.ReplaceAllString(text, "")
	text = pageFooterRe.ReplaceAllString(text, "")
	text = stripDisallowed(text)
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripDisallowed removes characters that are not letters, digits,
// punctuation or whitespace.
func stripDisallowed(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
}

// estimateTokens approximates the token count as ceil(chars/4).
func estimateTokens(content string) int {
	n := len([]rune(content))
	return (n + 3) / 4
}
