package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidDateKey is returned when a snapshot date key is not YYYY-MM-DD
	ErrInvalidDateKey = errors.New("invalid date key")

	// ErrSnapshotNotFound is returned when no digest snapshot exists for the lookup
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSourceUnavailable is returned when a product feed cannot be fetched
	ErrSourceUnavailable = errors.New("product source unavailable")

	// ErrInsightsUnavailable is returned when the insight generator cannot produce text
	ErrInsightsUnavailable = errors.New("insight generator unavailable")

	// ErrUnknownStrategy is returned when a matcher strategy name is not recognised
	ErrUnknownStrategy = errors.New("unknown matching strategy")
)
