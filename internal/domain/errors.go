package domain

import "errors"

var (
	// ErrMissingTranscripts means there is nothing to answer from.
	ErrMissingTranscripts = errors.New("no transcripts found")
	// ErrEmbeddingFailure means chunks or questions could not be embedded.
	ErrEmbeddingFailure = errors.New("embedding failed")
	// ErrServiceUnavailable means the language model service did not answer.
	ErrServiceUnavailable = errors.New("language model service not responding")
	// ErrModelNotFound means the service is up but the model weights are absent.
	ErrModelNotFound = errors.New("model not found")

	ErrEmptyQuestion = errors.New("empty question")
	ErrNotReady      = errors.New("not ready for questions")
)
