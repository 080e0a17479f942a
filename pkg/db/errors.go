// Package db pkg/db/errors.go provides errors for the db package.
package db

import "errors"

var (
	ErrFailedToBeginTx = errors.New("db: failed to begin transaction")
	ErrFailedToScan    = errors.New("db: failed to scan")
	ErrFailedToQuery   = errors.New("db: failed to query")
	ErrFailedToInsert  = errors.New("db: failed to insert")
	ErrFailedToInit    = errors.New("db: failed to initialize schema")
	ErrFailedToClean   = errors.New("db: failed to prune old data")
	ErrFailedOpenDB    = errors.New("db: failed to open database")

	ErrSiteNotFound        = errors.New("db: site not found")
	ErrTransmitterNotFound = errors.New("db: transmitter not found")
	ErrSiteRequired        = errors.New("db: transmitter must reference an existing site")
	ErrInvalidPatchColumn  = errors.New("db: invalid patch column")
)
