package config

import (
	"os"
	"strconv"
)

func loadDevelopmentConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/library.sqlite"
	cfg.ServerHost = "127.0.0.1"
	cfg.WebHost = "127.0.0.1"
	cfg.BackendBaseURL = "http://localhost:8081"
	cfg.OIDCIssuerURL = "http://localhost:8180/realms/library"
	cfg.OAuthClientID = "library-frontend"
	cfg.OAuthClientSecret = os.Getenv("OAUTH_CLIENT_SECRET")
	cfg.OAuthRedirectURL = "http://localhost:8082/oauth2/callback"
	cfg.SessionSecret = "development-session-secret"
	cfg.KeycloakBaseURL = "http://localhost:8180"
	cfg.KeycloakAdminClientID = "admin-cli"
	cfg.KeycloakAdminUsername = os.Getenv("KEYCLOAK_ADMIN_USERNAME")
	cfg.KeycloakAdminPassword = os.Getenv("KEYCLOAK_ADMIN_PASSWORD")
}
