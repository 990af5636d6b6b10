package main

import kgsql "github.com/itihasa/kgq/internal/storage/sql"

func sqlConfigFromFlags() kgsql.Config {
	return kgsql.Config{
		Driver: flagSQLDrv,
		DSN:    flagSQLDSN,
	}
}
