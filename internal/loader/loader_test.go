package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptqa/internal/domain"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_ReadsTxtInNameOrder(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "b_call.txt", "second")
	write(t, dir, "a_call.TXT", "first")
	write(t, dir, "notes.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.txt"), 0o755))

	got, err := Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a_call.TXT", got[0].Name)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "b_call.txt", got[1].Name)
	assert.Equal(t, filepath.Join(dir, "b_call.txt"), got[1].Path)
	assert.Len(t, got[0].ID, 16)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestLoad_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "call.txt", "txt")
	write(t, dir, "call.vtt", "vtt")

	got, err := Load(dir, []string{".vtt"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "vtt", got[0].Content)
}

func TestLoad_MissingTranscripts(t *testing.T) {
	empty := t.TempDir()
	_, err := Load(empty, nil)
	assert.ErrorIs(t, err, domain.ErrMissingTranscripts)

	_, err = Load(filepath.Join(empty, "nope"), nil)
	assert.ErrorIs(t, err, domain.ErrMissingTranscripts)

	write(t, empty, "readme.md", "x")
	_, err = Load(empty, nil)
	assert.ErrorIs(t, err, domain.ErrMissingTranscripts)
}

// minimalPDF builds a one-page PDF showing text in Helvetica.
func minimalPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

func TestLoad_PDFText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "call.pdf"), minimalPDF("Our standard rate is 45 dollars per visit."), 0o644))
	write(t, dir, "call.txt", "plain")

	got, err := Load(dir, []string{".txt", ".pdf"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "call.pdf", got[0].Name)
	assert.Contains(t, got[0].Content, "standard rate is 45 dollars per visit")
	assert.Equal(t, "plain", got[1].Content)
}

func TestLoad_CorruptPDF(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "call.pdf", "this is not a pdf")

	_, err := Load(dir, []string{".pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call.pdf")
	assert.NotErrorIs(t, err, domain.ErrMissingTranscripts)
}
