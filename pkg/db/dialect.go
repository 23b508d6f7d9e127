package db

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/smallbiznis/contractledger/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect picks the gorm dialector for the configured store. All stores run
// in UTC so stored due dates compare as calendar dates.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
	case "mysql":
		return mysql.Open(mysqlDSN(cfg)), nil
	case "postgres", "postgresql":
		return postgres.Open(postgresDSN(cfg)), nil
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return nil, fmt.Errorf("sqlite requires DATABASE_PATH")
		}
		return sqlite.Open(cfg.DBPath), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

func mysqlDSN(cfg config.Config) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.DBUser
	dsn.Passwd = cfg.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	dsn.DBName = cfg.DBName
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

func postgresDSN(cfg config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:   net.JoinHostPort(cfg.DBHost, cfg.DBPort),
		Path:   "/" + cfg.DBName,
	}
	q := url.Values{}
	if mode := strings.TrimSpace(cfg.DBSSLMode); mode != "" {
		q.Set("sslmode", mode)
	}
	q.Set("TimeZone", "UTC")
	u.RawQuery = q.Encode()
	return u.String()
}
