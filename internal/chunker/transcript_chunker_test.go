package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptqa/internal/domain"
)

const lawnCall = `0:02
Agent: Thanks for calling Green Acres lawn care, this is Dana.
0:05
Customer: Hi, I wanted to ask about mowing for a half acre lot.
0:11
Agent: Sure. Weekly mowing is $45 per visit and includes edging.
0:19
Customer: Do you bag the clippings?
0:22
Agent: Bagging is an extra $10, or we mulch them for free.

1:03
Customer: What is the cancellation policy?
1:07
Agent: You can cancel any time with 48 hours notice.
`

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestChunk_EmptyInput(t *testing.T) {
	c := NewTranscriptChunker(100, TimestampBoundary())
	for _, in := range []string{"", "   ", "\n\n\t"} {
		chunks, err := c.Chunk(domain.Transcript{Name: "empty.txt", Content: in})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunk_ReconstructsOriginal(t *testing.T) {
	boundaries := map[string]Boundary{
		"timestamp":  TimestampBoundary(),
		"blank_line": BlankLineBoundary(),
		"sentence":   SentenceBoundary(),
	}
	for name, b := range boundaries {
		for _, size := range []int{1, 20, 80, 500, 5000} {
			c := NewTranscriptChunker(size, b)
			chunks, err := c.Chunk(domain.Transcript{Name: "call.txt", Content: lawnCall})
			require.NoError(t, err, name)
			assert.Equal(t, normalize(lawnCall), strings.Join(texts(chunks), " "), "%s size=%d", name, size)
		}
	}
}

func TestChunk_RespectsMaxChars(t *testing.T) {
	b := TimestampBoundary()
	for _, size := range []int{1, 10, 40, 75, 120, 300} {
		c := NewTranscriptChunker(size, b)
		var units []string
		for _, u := range c.units(lawnCall) {
			if n := normalize(u); n != "" {
				units = append(units, n)
			}
		}
		chunks, err := c.Chunk(domain.Transcript{Name: "call.txt", Content: lawnCall})
		require.NoError(t, err)
		for _, ch := range chunks {
			if utf8.RuneCountInString(ch.Text) > size {
				assert.Contains(t, units, ch.Text, "oversized chunk is not a single unit (size=%d)", size)
			}
		}
	}
}

func TestChunk_NoTimestampsFallsBackToLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 80; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "Agent: Our weekly mowing plan number %d costs $45 per visit and includes edging.\n", i)
		} else {
			fmt.Fprintf(&b, "Customer: Thanks, could you also quote hedge trimming for lot %d?\n", i)
		}
	}
	text := b.String()

	chunks, err := NewTranscriptChunker(500, TimestampBoundary()).Chunk(domain.Transcript{Name: "plain.txt", Content: text})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 5)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 500)
		assert.Regexp(t, `^(Agent|Customer): `, ch.Text)
	}
	assert.Equal(t, normalize(text), strings.Join(texts(chunks), " "))
}

func TestChunk_LongLineFallsBackToSentences(t *testing.T) {
	text := strings.Repeat("The technician checked the pump. ", 30)
	chunks, err := NewTranscriptChunker(100, TimestampBoundary()).Chunk(domain.Transcript{Name: "line.txt", Content: text})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 100)
	}
	assert.Equal(t, normalize(text), strings.Join(texts(chunks), " "))
}

func TestChunk_PrefersTimestampBoundaries(t *testing.T) {
	chunks, err := NewTranscriptChunker(80, TimestampBoundary()).Chunk(domain.Transcript{Name: "call.txt", Content: lawnCall})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Regexp(t, `^\d+:\d{2} `, ch.Text)
	}
}

func TestChunk_OversizedUnitKeptWhole(t *testing.T) {
	long := "0:01 " + strings.Repeat("word ", 40) + "\n0:09 short"
	chunks, err := NewTranscriptChunker(30, TimestampBoundary()).Chunk(domain.Transcript{Name: "long.txt", Content: long})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, normalize("0:01 "+strings.Repeat("word ", 40)), chunks[0].Text)
	assert.Equal(t, "0:09 short", chunks[1].Text)
}

func TestChunk_PositionsAndIDs(t *testing.T) {
	chunks, err := NewTranscriptChunker(60, TimestampBoundary()).Chunk(domain.Transcript{Name: "call.txt", Content: lawnCall})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Position)
		assert.Equal(t, "call.txt", ch.Source)
		assert.Equal(t, "call.txt:"+strconv.Itoa(i), ch.ID)
	}
}

func TestChunk_InlineTimestamp(t *testing.T) {
	text := "Customer asked about pricing at [00:01:23]. Agent: Our standard rate is $45 per visit."
	chunks, err := NewTranscriptChunker(500, TimestampBoundary()).Chunk(domain.Transcript{Name: "pricing.txt", Content: text})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
}

func TestBoundaryFor(t *testing.T) {
	b, err := BoundaryFor("pattern", `(?m)^Agent:`, false)
	require.NoError(t, err)
	chunks, err := NewTranscriptChunker(1, b).Chunk(domain.Transcript{Name: "x.txt", Content: "Agent: a\nCustomer: b\nAgent: c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Agent: a Customer: b", "Agent: c"}, texts(chunks))

	_, err = BoundaryFor("pattern", "", false)
	assert.Error(t, err)
	_, err = BoundaryFor("pattern", "([", false)
	assert.Error(t, err)
	_, err = BoundaryFor("paragraphs", "", false)
	assert.Error(t, err)
}
