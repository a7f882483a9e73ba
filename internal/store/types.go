package store

import "errors"

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

type DBConfig struct {
	DSN  string
	Type DatabaseType
}

var (
	// ErrDuplicateRequest means a request with the same req_id is already
	// pending. The primary key enforces this; pending requests are never
	// overwritten in place.
	ErrDuplicateRequest = errors.New("request id already pending")

	// ErrNotFound means a referenced student or teacher row is absent.
	ErrNotFound = errors.New("record not found")
)
