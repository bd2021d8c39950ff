// Package loader reads call transcripts from a directory.
package loader

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"transcriptqa/internal/domain"
)

// DefaultExtensions lists the transcript file types read when none are configured.
var DefaultExtensions = []string{".txt"}

// Load reads every file in dir whose extension is in extensions, in name
// order. A missing directory or one without matching files yields
// domain.ErrMissingTranscripts.
func Load(dir string, extensions []string) ([]domain.Transcript, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory %s does not exist", domain.ErrMissingTranscripts, dir)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrMissingTranscripts, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !accepted(e.Name(), extensions) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s (looked for %s)", domain.ErrMissingTranscripts, dir, strings.Join(extensions, ", "))
	}
	sort.Strings(names)

	transcripts := make([]domain.Transcript, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		content, err := readText(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		transcripts = append(transcripts, domain.Transcript{
			ID:      hashString(path),
			Path:    path,
			Name:    name,
			Content: content,
		})
	}
	return transcripts, nil
}

func accepted(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func readText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	text, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, text); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
