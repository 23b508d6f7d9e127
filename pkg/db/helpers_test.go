package db

import "github.com/smallbiznis/contractledger/internal/config"

func testConfig(dbType string) config.Config {
	return config.Config{
		DBType: dbType,
		DBHost: "localhost",
		DBPort: "5432",
		DBName: "contractledger",
		DBUser: "postgres",
	}
}
