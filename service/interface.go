package service

// Service is a run-scoped resource owned by the coordinator
// The shared grid segment and the run log are services
//
// Lifecycle:
//  1. Construction
//  2. Start() - acquire the resource; failure aborts the run before any worker exists
//  3. [run]
//  4. Stop() - release the resource exactly once
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Start acquires the resource
	Start() error

	// Stop releases the resource
	// Must be idempotent - safe to call multiple times
	Stop() error
}
