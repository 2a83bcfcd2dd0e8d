package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// strings such as "15m" or integer nanoseconds. Zero values leave the
// corresponding Config field untouched.
type FileConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr" yaml:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	StorageBackend               string         `json:"storage_backend" yaml:"storage_backend"`
	RedisAddr                    string         `json:"redis_addr" yaml:"redis_addr"`
	AccessTokenSecret            string         `json:"access_token_secret" yaml:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret" yaml:"refresh_token_secret"`
	ResetTokenSecret             string         `json:"reset_token_secret" yaml:"reset_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	ResetTokenValidityDuration   timex.Duration `json:"reset_token_validity_duration" yaml:"reset_token_validity_duration"`
	EmailChangeValidityDuration  timex.Duration `json:"email_change_validity_duration" yaml:"email_change_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost" yaml:"bcrypt_cost"`
	ClientURL                    string         `json:"client_url" yaml:"client_url"`
	SMTPHost                     string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser                     string         `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password" yaml:"smtp_password"`
	MailFrom                     string         `json:"mail_from" yaml:"mail_from"`
	SecureCookies                *bool          `json:"secure_cookies" yaml:"secure_cookies"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
}

// parseFile loads the file named by -c/-config, if any, and overlays it on
// config. The format is picked by extension: .yaml/.yml, anything else is JSON.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(config *Config) {
	str := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}
	dur := func(src timex.Duration, dst *time.Duration) {
		if src.Duration != 0 {
			*dst = src.Duration
		}
	}
	num := func(src int, dst *int) {
		if src != 0 {
			*dst = src
		}
	}

	str(fc.EndpointAddr, &config.EndpointAddr)
	str(fc.DatabaseDSN, &config.DatabaseDSN)
	str(fc.StorageBackend, &config.StorageBackend)
	str(fc.RedisAddr, &config.RedisAddr)
	str(fc.AccessTokenSecret, &config.AccessTokenSecret)
	str(fc.RefreshTokenSecret, &config.RefreshTokenSecret)
	str(fc.ResetTokenSecret, &config.ResetTokenSecret)
	dur(fc.AccessTokenValidityDuration, &config.AccessTokenValidityDuration)
	dur(fc.RefreshTokenValidityDuration, &config.RefreshTokenValidityDuration)
	dur(fc.ResetTokenValidityDuration, &config.ResetTokenValidityDuration)
	dur(fc.EmailChangeValidityDuration, &config.EmailChangeValidityDuration)
	num(fc.BcryptCost, &config.BcryptCost)
	str(fc.ClientURL, &config.ClientURL)
	str(fc.SMTPHost, &config.SMTPHost)
	num(fc.SMTPPort, &config.SMTPPort)
	str(fc.SMTPUser, &config.SMTPUser)
	str(fc.SMTPPassword, &config.SMTPPassword)
	str(fc.MailFrom, &config.MailFrom)
	if fc.SecureCookies != nil {
		config.SecureCookies = *fc.SecureCookies
	}
	str(fc.LogLevel, &config.LogLevel)
}
