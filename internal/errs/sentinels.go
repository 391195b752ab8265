// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist within the
	// active tenant scope. Cross-tenant access surfaces as this error, never
	// as a "forbidden" that would reveal the row exists.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoTenant indicates a storage call was issued without a tenant
	// binding in the context.
	ErrNoTenant = errors.New("no tenant in scope")
)

// Vault sentinels.
var (
	// ErrEnvelopeTooLarge indicates the encoded envelope exceeds the storage cap.
	ErrEnvelopeTooLarge = errors.New("envelope too large")

	// ErrEnvelopeMalformed indicates the envelope failed to decode or parse.
	ErrEnvelopeMalformed = errors.New("envelope malformed")

	// ErrOpenFailed indicates authenticated decryption failed. Deliberately
	// carries no detail about which part of the envelope did not verify.
	ErrOpenFailed = errors.New("open failed")

	// ErrUnknownKeyID indicates the envelope references a key absent from the registry.
	ErrUnknownKeyID = errors.New("unknown key id")
)
