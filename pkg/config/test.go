package config

func loadTestConfig(cfg *Config) {
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.WebHost = "127.0.0.1"
	cfg.WebPort = 0
	cfg.BackendBaseURL = "http://localhost:8081"
	cfg.OIDCIssuerURL = "http://localhost:8180/realms/library"
	cfg.OAuthClientID = "library-frontend"
	cfg.OAuthRedirectURL = "http://localhost:8082/oauth2/callback"
	cfg.SessionSecret = "test-session-secret"
	cfg.KeycloakBaseURL = "http://localhost:8180"
	cfg.KeycloakAdminClientID = "admin-cli"
}
