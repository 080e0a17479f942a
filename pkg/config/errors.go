package config

import "errors"

var errDatabaseURLRequired = errors.New("config: DATABASE_URL is required")
