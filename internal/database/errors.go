package database

import "errors"

var (
	ErrParseConfig = errors.New("failed to parse database config")
	ErrConnect     = errors.New("failed to open database connection")
	ErrHealthcheck = errors.New("database healthcheck failed")
)
