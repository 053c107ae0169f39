package store

import (
	crerr "github.com/cockroachdb/errors"
)

// Sentinel store errors. Callers match with errors.Is; the cockroachdb
// errors carry wrapped detail for logs.
var (
	ErrUnknownLeague   = crerr.New("unknown league")
	ErrLeagueExists    = crerr.New("league already exists")
	ErrInvalidDocName  = crerr.New("invalid document name")
	ErrCorruptDocument = crerr.New("corrupt document")
	ErrIO              = crerr.New("store io failure")
)
