package errors

import "github.com/pkg/errors"

var (
	// session errors
	ErrConnectInProgress = errors.New("connect already in progress")
	ErrNotConnected      = errors.New("session is not connected")
	ErrConnectionTimeout = errors.New("connection timeout")

	// account errors
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrNoSyncFolders   = errors.New("sync folders is empty")

	// pipeline errors
	ErrMalformedMessage = errors.New("malformed message")

	// similarity index errors
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
