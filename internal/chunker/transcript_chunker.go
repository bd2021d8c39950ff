package chunker

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"transcriptqa/internal/domain"
)

const defaultMaxChars = 500

// TranscriptChunker packs natural transcript units into chunks of at most
// maxChars runes. Units longer than maxChars are cut again at line breaks,
// then at sentence ends; a piece still too long becomes a chunk of its own.
type TranscriptChunker struct {
	maxChars int
	boundary Boundary
}

func NewTranscriptChunker(maxChars int, boundary Boundary) *TranscriptChunker {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	if boundary.Pattern == nil {
		boundary = TimestampBoundary()
	}
	return &TranscriptChunker{maxChars: maxChars, boundary: boundary}
}

func (c *TranscriptChunker) Chunk(transcript domain.Transcript) ([]domain.Chunk, error) {
	if strings.TrimSpace(transcript.Content) == "" {
		return nil, nil
	}
	var chunks []domain.Chunk
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if currentLen == 0 {
			return
		}
		pos := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:       transcript.Name + ":" + strconv.Itoa(pos),
			Source:   transcript.Name,
			Text:     current.String(),
			Position: pos,
		})
		current.Reset()
		currentLen = 0
	}
	for _, raw := range c.units(transcript.Content) {
		unit := normalize(raw)
		if unit == "" {
			continue
		}
		n := utf8.RuneCountInString(unit)
		if currentLen > 0 && currentLen+1+n > c.maxChars {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(unit)
		currentLen += n
	}
	flush()
	return chunks, nil
}

var refinements = []Boundary{LineBoundary(), SentenceBoundary()}

// units returns the natural units of text, with oversized ones refined.
func (c *TranscriptChunker) units(text string) []string {
	var out []string
	for _, raw := range c.boundary.units(text) {
		out = append(out, c.refine(raw, refinements)...)
	}
	return out
}

func (c *TranscriptChunker) refine(raw string, fallbacks []Boundary) []string {
	if len(fallbacks) == 0 || utf8.RuneCountInString(normalize(raw)) <= c.maxChars {
		return []string{raw}
	}
	var out []string
	for _, u := range fallbacks[0].units(raw) {
		out = append(out, c.refine(u, fallbacks[1:])...)
	}
	return out
}

// normalize collapses whitespace runs into single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
