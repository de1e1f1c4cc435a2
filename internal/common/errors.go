// Package common defines shared constants and sentinel errors used across
// the client sync engine and the server. Callers match these values with
// errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrStorageFailure marks a broken local persistence layer (disk full,
	// corruption). The triggering user action must fail visibly; it is never
	// swallowed.
	ErrStorageFailure = errors.New("storage failure")

	// Sync failure taxonomy. The remote gateway classifies every failed call
	// as exactly one of these.
	ErrUnauthorized    = errors.New("unauthorized")
	ErrVersionConflict = errors.New("version conflict")
	ErrTransient       = errors.New("transient failure")
	ErrRejected        = errors.New("rejected by server")

	// Domain validation errors.
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrUnknownCurrency  = errors.New("unknown currency code")
	ErrReasonTooLong    = errors.New("reason exceeds maximum length")
	ErrAlreadyPaid      = errors.New("penalty already paid")
	ErrNotLocalOnly     = errors.New("penalty was already synced or paid")
	ErrPaidBeforeCreate = errors.New("paid timestamp precedes creation")

	// ErrUserAlreadyExists signals a registration with a taken username.
	ErrUserAlreadyExists = errors.New("user already exists")

	// Auth token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Service-level catch-all.
	ErrInternal = errors.New("internal error")
)
