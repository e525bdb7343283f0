// Package services holds the business logic behind the HTTP handlers.
// Sentinel errors defined here let handlers map failures onto distinct
// HTTP responses: ErrNotFound becomes 404, ErrForbidden 403, and the
// quota/rewrite errors become user-facing 4xx messages so the client
// can decide between an upgrade prompt and a retry button.
package services

import "errors"

// ErrNotFound is returned when a dream, version or user does not exist
// (or is soft-deleted).
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller does not own the dream or
// version being accessed.
var ErrForbidden = errors.New("forbidden")

// ErrQuotaExhausted is returned when a non-VIP user has no free polish
// attempts left today. Recoverable by waiting for the next day or
// upgrading; never retried automatically.
var ErrQuotaExhausted = errors.New("polish quota exhausted")

// ErrRewriteFailed is returned when the AI service could not produce a
// rewrite. The caller may retry manually; no state was changed.
var ErrRewriteFailed = errors.New("ai rewrite failed")

// ErrQuotaUnavailable is returned when the lazy quota row could not be
// created after bounded retries against concurrent creators.
var ErrQuotaUnavailable = errors.New("quota temporarily unavailable")

// ErrValidation is returned for request payloads that fail domain
// validation (content length, empty batch, etc.).
var ErrValidation = errors.New("validation failed")
