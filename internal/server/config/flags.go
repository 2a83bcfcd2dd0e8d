package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":3001")
//	-d string   PostgreSQL DSN
//	-b string   storage backend: postgres or memory
//	-r string   Redis address or redis:// URL for the session token store
//	-u string   public client URL used in email links
//	-l string   log level
//	-t int      access token validity, minutes
//	-rt int     refresh token validity, minutes
//	-pt int     password reset token validity, minutes
//
// Secrets are intentionally not accepted on the command line; use the
// environment or a config file.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-b", "-r", "-u", "-l", "-t", "-rt", "-pt"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageBackend, "b", config.StorageBackend, "storage backend (postgres|memory)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for session tokens")
	fs.StringVar(&config.ClientURL, "u", config.ClientURL, "public client URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	access := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refresh := fs.Int("rt", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	reset := fs.Int("pt", int(config.ResetTokenValidityDuration.Minutes()), "reset token validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only explicitly given minute flags override; sub-minute values from
	// the environment or a file must survive an absent flag.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*access) * time.Minute
		case "rt":
			config.RefreshTokenValidityDuration = time.Duration(*refresh) * time.Minute
		case "pt":
			config.ResetTokenValidityDuration = time.Duration(*reset) * time.Minute
		}
	})
	return nil
}
