package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/tracekit/carbontrace/internal/gmail"
	"github.com/tracekit/carbontrace/internal/maps"
)

// LoadMapsConfig loads the maps capability configuration from Viper and
// environment variables. Precedence:
// 1. Viper configuration (from config file or CARBONTRACE_ env vars)
// 2. Direct environment variables (GOOGLE_MAPS_API_KEY)
func LoadMapsConfig() maps.Config {
	config := maps.Config{
		APIKey:            viper.GetString("maps.api_key"),
		RequestsPerMinute: viper.GetInt("maps.requests_per_minute"),
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}
	return config
}

// LoadGmailConfig loads the Gmail OAuth configuration from Viper and
// environment variables.
func LoadGmailConfig() gmail.OAuth2Config {
	config := gmail.OAuth2Config{
		ClientID:     viper.GetString("gmail.client_id"),
		ClientSecret: viper.GetString("gmail.client_secret"),
		TokenFile:    ExpandPath(viper.GetString("gmail.token_file")),
	}
	if config.ClientID == "" {
		config.ClientID = os.Getenv("GMAIL_CLIENT_ID")
	}
	if config.ClientSecret == "" {
		config.ClientSecret = os.Getenv("GMAIL_CLIENT_SECRET")
	}
	if config.TokenFile == "" {
		config.TokenFile = ExpandPath("~/.config/carbontrace/gmail-token.json")
	}
	return config
}

