package service

import "errors"

// Sentinel errors for orchestration preconditions. Checked with errors.Is.
var (
	// ErrProjectNotFound indicates the referenced project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrSourceNotFound indicates the referenced source does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrRunNotFound indicates the referenced generation run does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrProfileRequired indicates a generation run was requested before
	// the project's context profile was built.
	ErrProfileRequired = errors.New("context profile required")

	// ErrNoChunkedSources indicates a profile build was requested before
	// any source reached the chunked state.
	ErrNoChunkedSources = errors.New("no chunked sources")

	// ErrRateLimited indicates the project's token bucket could not cover
	// the operation's cost.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnsupportedMime indicates a file source with a MIME type outside
	// the allow-list.
	ErrUnsupportedMime = errors.New("unsupported file type")

	// ErrFileTooLarge indicates a file source above the size cap.
	ErrFileTooLarge = errors.New("file too large")
)
