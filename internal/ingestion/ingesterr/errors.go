// Package ingesterr defines the item-level error taxonomy for ingestion.
// Every failure is terminal for its own item only; the orchestrator
// converts these into failure records and keeps going.
package ingesterr

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step an item failed in.
type Stage string

const (
	StageIdentify Stage = "identify"
	StageFetch    Stage = "fetch"
	StageDedup    Stage = "dedup"
	StageMap      Stage = "map"
	StageApply    Stage = "apply"
)

// ParseError: a source name/header does not match the expected grammar.
// Terminal for the item.
type ParseError struct {
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Name, e.Reason)
}

// FetchError wraps a failure pulling a raw payload. Retryable errors
// (timeouts, 5xx) are eligible for re-queue; terminal ones (404, corrupt
// archive) are not.
type FetchError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "terminal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Op, kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MappingError: a required identity field could not be determined from
// the raw record. Never retried automatically.
type MappingError struct {
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map: required field %q: %s", e.Field, e.Reason)
}

// PersistenceError wraps a transactional failure applying an entity
// bundle. Transient store errors (serialization conflicts) are retried a
// bounded number of times before surfacing.
type PersistenceError struct {
	Transient bool
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("apply: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsRetryable reports whether err may succeed on a later attempt.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}

// StageOf classifies an item error to its pipeline stage.
func StageOf(err error) Stage {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return StageIdentify
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return StageFetch
	}
	var mapErr *MappingError
	if errors.As(err, &mapErr) {
		return StageMap
	}
	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		return StageApply
	}
	return ""
}
