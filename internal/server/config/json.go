package config

import (
	"encoding/json"
	"os"

	"github.com/rendlabs/rend/internal/flagx"
	"github.com/rendlabs/rend/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which parses both
// string values such as "5m" and integer nanoseconds. After unmarshalling,
// non-empty fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr         string         `json:"endpoint_addr"`
	DatabaseDSN          string         `json:"database_dsn"`
	SecretKey            string         `json:"secret_key"`
	SessionTokenValidity timex.Duration `json:"session_token_validity"`
	NonceValidity        timex.Duration `json:"nonce_validity"`
	ResetTokenValidity   timex.Duration `json:"reset_token_validity"`
	GoogleClientID       string         `json:"google_client_id"`
	GoogleClientSecret   string         `json:"google_client_secret"`
	GoogleRedirectURI    string         `json:"google_redirect_uri"`
	EmailFrom            string         `json:"email_from"`
	SESRegion            string         `json:"ses_region"`
	SESAccessKey         string         `json:"ses_access_key"`
	SESSecretKey         string         `json:"ses_secret_key"`
	SESBaseEndpoint      string         `json:"ses_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config. The file path comes from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. An unreadable or malformed file
// panics, since the server cannot run on a half-applied configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.SessionTokenValidity.Duration != 0 {
		config.SessionTokenValidity = c.SessionTokenValidity.Duration
	}
	if c.NonceValidity.Duration != 0 {
		config.NonceValidity = c.NonceValidity.Duration
	}
	if c.ResetTokenValidity.Duration != 0 {
		config.ResetTokenValidity = c.ResetTokenValidity.Duration
	}
	if c.GoogleClientID != "" {
		config.GoogleClientID = c.GoogleClientID
	}
	if c.GoogleClientSecret != "" {
		config.GoogleClientSecret = c.GoogleClientSecret
	}
	if c.GoogleRedirectURI != "" {
		config.GoogleRedirectURI = c.GoogleRedirectURI
	}
	if c.EmailFrom != "" {
		config.EmailFrom = c.EmailFrom
	}
	if c.SESRegion != "" {
		config.SESRegion = c.SESRegion
	}
	if c.SESAccessKey != "" {
		config.SESAccessKey = c.SESAccessKey
	}
	if c.SESSecretKey != "" {
		config.SESSecretKey = c.SESSecretKey
	}
	if c.SESBaseEndpoint != "" {
		config.SESBaseEndpoint = c.SESBaseEndpoint
	}
}
