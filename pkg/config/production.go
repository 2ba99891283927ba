package config

import (
	"os"
	"strconv"
)

func loadProductionConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}
	webPort, err := strconv.Atoi(os.Getenv("WEB_PORT"))
	if err == nil {
		cfg.WebPort = webPort
	}

	cfg.DatabaseFilePath = envOr("DATABASE_FILE_PATH", "/data/library.sqlite")
	cfg.ServerHost = "0.0.0.0"
	cfg.WebHost = "0.0.0.0"
	cfg.BackendBaseURL = os.Getenv("BACKEND_BASE_URL")
	cfg.OIDCIssuerURL = os.Getenv("OIDC_ISSUER_URL")
	cfg.OAuthClientID = envOr("OAUTH_CLIENT_ID", "library-frontend")
	cfg.OAuthClientSecret = os.Getenv("OAUTH_CLIENT_SECRET")
	cfg.OAuthRedirectURL = os.Getenv("OAUTH_REDIRECT_URL")
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.KeycloakBaseURL = os.Getenv("KEYCLOAK_BASE_URL")
	cfg.KeycloakRealm = envOr("KEYCLOAK_REALM", "library")
	cfg.KeycloakAdminClientID = envOr("KEYCLOAK_ADMIN_CLIENT_ID", "admin-cli")
	cfg.KeycloakAdminUsername = os.Getenv("KEYCLOAK_ADMIN_USERNAME")
	cfg.KeycloakAdminPassword = os.Getenv("KEYCLOAK_ADMIN_PASSWORD")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
