package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type lookupFunc func(key string) (string, bool)

var lookupEnv lookupFunc = os.LookupEnv

// loadDotEnv loads ENV_FILE (default ".env") into the process environment.
// Variables already set win over the file; a missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays environment variables on config.
//
// Recognised variables:
//
//	PORT / ENDPOINT_ADDR                     listener (PORT=3001 means ":3001")
//	DATABASE_DSN or DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME
//	STORAGE_BACKEND, REDIS_ADDR
//	JWT_ACCESS_KEY, JWT_REFRESH_KEY, JWT_RESET_KEY
//	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, RESET_TOKEN_TTL, EMAIL_CHANGE_TTL (Go durations)
//	BCRYPT_COST, CLIENT_URL, SECURE_COOKIES, LOG_LEVEL
//	SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD, MAIL_FROM
//	GMAIL_EMAIL, GMAIL_APP_PASSWORD      shortcut for Gmail SMTP submission
func parseEnv(config *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		config.EndpointAddr = ":" + port
	}
	str("ENDPOINT_ADDR", &config.EndpointAddr)

	if dsn := dsnFromParts(lookup); dsn != "" {
		config.DatabaseDSN = dsn
	}
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("STORAGE_BACKEND", &config.StorageBackend)
	str("REDIS_ADDR", &config.RedisAddr)

	str("JWT_ACCESS_KEY", &config.AccessTokenSecret)
	str("JWT_REFRESH_KEY", &config.RefreshTokenSecret)
	str("JWT_RESET_KEY", &config.ResetTokenSecret)

	dur("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	dur("REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	dur("RESET_TOKEN_TTL", &config.ResetTokenValidityDuration)
	dur("EMAIL_CHANGE_TTL", &config.EmailChangeValidityDuration)

	num("BCRYPT_COST", &config.BcryptCost)
	str("CLIENT_URL", &config.ClientURL)
	str("LOG_LEVEL", &config.LogLevel)

	if v, ok := lookup("SECURE_COOKIES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SECURE_COOKIES: %w", err))
		} else {
			config.SecureCookies = b
		}
	}

	if user, ok := lookup("GMAIL_EMAIL"); ok && user != "" {
		config.SMTPHost = "smtp.gmail.com"
		config.SMTPPort = 587
		config.SMTPUser = user
		config.MailFrom = user
	}
	str("GMAIL_APP_PASSWORD", &config.SMTPPassword)

	str("SMTP_HOST", &config.SMTPHost)
	num("SMTP_PORT", &config.SMTPPort)
	str("SMTP_USER", &config.SMTPUser)
	str("SMTP_PASSWORD", &config.SMTPPassword)
	str("MAIL_FROM", &config.MailFrom)

	return errors.Join(errs...)
}

// dsnFromParts assembles a DSN from DB_* variables, or returns "" if none is set.
func dsnFromParts(lookup lookupFunc) string {
	get := func(key, fallback string) (string, bool) {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
		return fallback, false
	}

	host, h := get("DB_HOST", "localhost")
	port, p := get("DB_PORT", "5432")
	user, u := get("DB_USER", "postgres")
	password, pw := get("DB_PASSWORD", "postgres")
	name, n := get("DB_NAME", "postgres")

	if !h && !p && !u && !pw && !n {
		return ""
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return dsn.String()
}
