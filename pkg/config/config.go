package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseBusyTimeout       time.Duration
	DatabaseMaxRetries        int
	DatabaseDebug             bool
	DatabaseFilePath          string
	Hostname                  string
	ServerHost                string
	ServerPort                int

	// Identity provider (Keycloak) settings shared by both servers. Issuer
	// is the realm URL, e.g. http://localhost:8180/realms/library.
	OIDCIssuerURL string

	// Frontend server.
	WebHost           string
	WebPort           int
	BackendBaseURL    string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string
	SessionSecret     string

	// Machine-to-machine Keycloak admin client used for user provisioning.
	KeycloakBaseURL       string
	KeycloakRealm         string
	KeycloakAdminClientID string
	KeycloakAdminUsername string
	KeycloakAdminPassword string
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseMaxRetries:        5,
		Hostname:                  hostname,
		ServerPort:                8081,
		WebPort:                   8082,
		KeycloakRealm:             "library",
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	return cfg, nil
}

// JWKSURL is the identity provider's published key set endpoint, derived
// from the issuer the Keycloak way.
func (c *Config) JWKSURL() string {
	return strings.TrimSuffix(c.OIDCIssuerURL, "/") + "/protocol/openid-connect/certs"
}
