package models

import "errors"

var (
	// ErrInvalidData marks an ingestion payload missing a required field.
	ErrInvalidData = errors.New("invalid event data")
	// ErrStorageFailure marks a failed insert or query against the event store.
	ErrStorageFailure = errors.New("storage failure")
	// ErrConfigurationMissing marks a collaborator endpoint or credential that was not configured.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrMalformedState marks persisted client identity state that could not be decoded.
	ErrMalformedState = errors.New("malformed persisted state")
)
