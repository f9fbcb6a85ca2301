package fusion

import (
	"errors"
	"fmt"
)

// Kind partitions request failures by where they belong in the error
// taxonomy. Extraction failures never appear here: indicator extraction
// absorbs them locally by degrading flags to false.
type Kind string

const (
	// KindArtifactUnavailable means the classifier artifact for a content
	// type never loaded. Reported at health-check granularity; requests
	// against that type are rejected as degraded capability.
	KindArtifactUnavailable Kind = "artifact_unavailable"

	// KindScoring means the loaded model failed on this request. Terminal
	// for the request, never retried.
	KindScoring Kind = "scoring_failure"

	// KindValidation means required input fields were empty or missing.
	// Rejected before extraction begins.
	KindValidation Kind = "validation_failure"
)

// Error is a tagged request failure. The tag lets the transport layer map
// failures to status codes without string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func artifactErr(contentType string, err error) *Error {
	return &Error{Kind: KindArtifactUnavailable, Msg: contentType + " classifier not loaded", Err: err}
}

func scoringErr(contentType string, err error) *Error {
	return &Error{Kind: KindScoring, Msg: contentType + " scoring failed", Err: err}
}

func validationErr(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// KindOf extracts the failure kind from an error chain. Unknown errors map
// to KindScoring, the most conservative request-level bucket.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindScoring
}
