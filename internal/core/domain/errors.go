package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// A prompt-cache miss is reported as ErrNotFound, never as a zero value.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Provider errors.

	// ErrProviderUnavailable indicates the embedding or model provider
	// could not be reached or refused the request.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrInsufficientCredits indicates the provider account has run out of credits.
	ErrInsufficientCredits = fmt.Errorf("%w: insufficient credits", ErrProviderUnavailable)

	// ErrInvalidCredential indicates the provider rejected the API key.
	ErrInvalidCredential = fmt.Errorf("%w: invalid credential", ErrProviderUnavailable)

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrProviderUnavailable)

	// Recoverable indexing errors.

	// ErrEmbeddingFailed indicates a single embedding call failed.
	// During indexing the offending chunk is skipped; during search the
	// whole search degrades to an empty result.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrCorpusRead indicates a single source document could not be read.
	// The document is skipped and indexing continues.
	ErrCorpusRead = errors.New("corpus read failed")

	// ErrStoreIntegrity indicates a persisted cache or memory file is
	// unreadable or malformed. The store is treated as empty and rebuilt.
	ErrStoreIntegrity = errors.New("store integrity error")
)
