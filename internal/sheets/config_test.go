package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	oauth := func(c Config) Config {
		c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "refresh"
		return c
	}
	keyFile := func(c Config) Config {
		c.ServiceAccountPath = "/keys/sa.json"
		return c
	}

	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "oauth", config: oauth(DefaultConfig())},
		{name: "service account", config: keyFile(DefaultConfig())},
		{name: "partial oauth is no auth", config: Config{ClientID: "id", BatchSize: 1}, wantErr: "no authentication method"},
		{name: "both auth methods", config: keyFile(oauth(DefaultConfig())), wantErr: "multiple authentication methods"},
		{name: "zero batch size", config: keyFile(Config{}), wantErr: "batch size must be positive"},
		{name: "negative retries", config: keyFile(Config{BatchSize: 5, RetryAttempts: -1}), wantErr: "retry attempts cannot be negative"},
		{name: "negative delay", config: keyFile(Config{BatchSize: 5, RetryDelay: -time.Second}), wantErr: "retry delay cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigLoadFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "/keys/sa.json")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "from-env")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "ignored")

	cfg := DefaultConfig()
	cfg.SpreadsheetID = "explicit"
	cfg.LoadFromEnv()

	assert.Equal(t, "/keys/sa.json", cfg.ServiceAccountPath)
	assert.Equal(t, "explicit", cfg.SpreadsheetID)
	assert.Equal(t, "Invoice Match Report", cfg.SpreadsheetName, "default name is already set")
	assert.NoError(t, cfg.Validate())
}
