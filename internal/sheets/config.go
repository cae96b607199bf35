// Package sheets exports bulk matching results to Google Sheets.
package sheets

import (
	"errors"
	"os"
	"time"
)

// ErrNoCredentials is returned when neither OAuth nor a service account is set.
var ErrNoCredentials = errors.New("no authentication method configured")

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns the exporter defaults. Credentials are left empty.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  "Invoice Match Report",
		TimeZone:         "America/New_York",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		EnableFormatting: true,
	}
}

// LoadFromEnv fills unset fields from GOOGLE_SHEETS_* environment variables.
func (c *Config) LoadFromEnv() {
	for env, field := range map[string]*string{
		"GOOGLE_SHEETS_CLIENT_ID":            &c.ClientID,
		"GOOGLE_SHEETS_CLIENT_SECRET":        &c.ClientSecret,
		"GOOGLE_SHEETS_REFRESH_TOKEN":        &c.RefreshToken,
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH": &c.ServiceAccountPath,
		"GOOGLE_SHEETS_SPREADSHEET_ID":       &c.SpreadsheetID,
		"GOOGLE_SHEETS_SPREADSHEET_NAME":     &c.SpreadsheetName,
	} {
		if *field == "" {
			*field = os.Getenv(env)
		}
	}
}

func (c *Config) usesOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

func (c *Config) usesServiceAccount() bool {
	return c.ServiceAccountPath != ""
}

// Validate requires exactly one credential source and sane write settings.
func (c *Config) Validate() error {
	switch {
	case !c.usesOAuth() && !c.usesServiceAccount():
		return ErrNoCredentials
	case c.usesOAuth() && c.usesServiceAccount():
		return errors.New("multiple authentication methods configured; use either OAuth2 or service account")
	case c.BatchSize <= 0:
		return errors.New("batch size must be positive")
	case c.RetryAttempts < 0:
		return errors.New("retry attempts cannot be negative")
	case c.RetryDelay < 0:
		return errors.New("retry delay cannot be negative")
	}
	return nil
}
