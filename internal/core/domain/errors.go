package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedDocument = errors.New("malformed document")
	ErrEmptyDocument     = errors.New("empty document")
	ErrEmptyQuery        = errors.New("empty query")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrProvider          = errors.New("provider failure")
	ErrGeneration        = errors.New("generation failure")
	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
