package veil

import "errors"

var (
	// ErrNotFound is returned by executors when no record matches.
	ErrNotFound = errors.New("veil: record not found")

	// ErrUnknownEntity is returned by executors for entities absent from
	// their schema.
	ErrUnknownEntity = errors.New("veil: unknown entity")

	// ErrUnknownRelation is returned by executors when an included relation
	// is not registered for the entity.
	ErrUnknownRelation = errors.New("veil: unknown relation")

	// ErrUnsupported is returned by executors that cannot serve an
	// operation shape (e.g. relation inclusion on a non-relational store).
	ErrUnsupported = errors.New("veil: operation not supported by executor")
)
