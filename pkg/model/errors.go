package model

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrDuplicatePayload  = errors.New("duplicate payload")
	ErrStorage           = errors.New("storage failure")
	ErrSeasonNotFound    = errors.New("season not found")
	ErrSeasonExists      = errors.New("season already exists")
	ErrInvalidSeasonName = errors.New("invalid season name")
	ErrCurrentSeason     = errors.New("season is the current season")
	ErrDriverNotFound    = errors.New("driver not found")
	ErrPayloadNotFound   = errors.New("payload not found")
	ErrUnknownMetric     = errors.New("unknown metric")
)

// DuplicateError is returned when a payload with identical content was
// already ingested.
type DuplicateError struct {
	Existing string // stored filename of the earlier upload
	Digest   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate payload: content already stored as %s", e.Existing)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicatePayload
}

// StorageError signals that a durable write did not complete.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func MalformedPayload(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}
