package utils

import (
	"database/sql"
	"net/url"

	_ "github.com/lib/pq"
)

// BuildPostgresDSNFromEnv：由 PG_* 拼装连接串
func BuildPostgresDSNFromEnv() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     Getenv("PG_HOST", "localhost") + ":" + Getenv("PG_PORT", "5432"),
		Path:     "/" + Getenv("PG_DB", "ipapi"),
		RawQuery: "sslmode=" + Getenv("PG_SSLMODE", "disable"),
	}
	user := Getenv("PG_USER", "postgres")
	if pass := Getenv("PG_PASSWORD", ""); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// OpenPostgresFromEnv：打开连接池；PG_ENABLE=false 时返回 nil, nil，调用方据此跳过持久化
func OpenPostgresFromEnv() (*sql.DB, error) {
	if !GetenvBool("PG_ENABLE", true) {
		return nil, nil
	}
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(GetenvInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(GetenvInt("PG_MAX_IDLE_CONNS", 5))
	return db, nil
}
