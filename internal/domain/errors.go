package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a terminal failure so clients never need to
// re-derive the cause from logs
type ErrorKind string

const (
	ErrKindURLUnsupported  ErrorKind = "url_unsupported"
	ErrKindUnavailable     ErrorKind = "resource_unavailable"
	ErrKindNetworkFailure  ErrorKind = "network_failure"
	ErrKindTimeout         ErrorKind = "timeout"
	ErrKindTooLarge        ErrorKind = "too_large"
	ErrKindCancelled       ErrorKind = "cancelled"
	ErrKindArtifactMissing ErrorKind = "artifact_missing"
	ErrKindInternal        ErrorKind = "internal"
)

// DownloadError is a classified failure crossing the extractor
// boundary. Nothing above the resolver ever handles a raw extractor
// error.
type DownloadError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient. Only network
// failures during resolution qualify for automatic retry.
func (e *DownloadError) Retryable() bool {
	return e.Kind == ErrKindNetworkFailure
}

// NewDownloadError creates a classified error
func NewDownloadError(kind ErrorKind, detail string, cause error) *DownloadError {
	return &DownloadError{Kind: kind, Detail: detail, Err: cause}
}

// ClassifyError extracts the kind from an error chain, defaulting to
// ErrKindInternal for unclassified errors
func ClassifyError(err error) (ErrorKind, string) {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind, de.Detail
	}
	return ErrKindInternal, err.Error()
}

// Sentinel errors returned by the orchestrator, repository and
// artifact server.
var (
	ErrNotFound       = errors.New("download not found")
	ErrNotReady       = errors.New("download not ready")
	ErrNotCancellable = errors.New("download already in a terminal state")
	ErrStatusConflict = errors.New("stored status does not match expected predecessor")
	ErrInFlight       = errors.New("download has an active resolve or transfer")
)
