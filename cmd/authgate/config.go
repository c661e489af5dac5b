package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// envConfig is everything the binary reads from the environment. Loaded once
// at startup and treated as immutable.
type envConfig struct {
	ServerPort string

	RedisAddr   string
	DatabaseURL string

	AWSRegion           string
	CognitoUserPoolID   string
	CognitoClientID     string
	CognitoClientSecret string

	RefreshTTL time.Duration

	InjectAuthorizationHeader bool
}

func loadEnv() (*envConfig, error) {
	cfg := &envConfig{}

	var missing []string
	required := func(name string) string {
		v := os.Getenv(name)
		if v == "" {
			missing = append(missing, name)
		}
		return v
	}

	cfg.RedisAddr = required("REDIS_ADDR")
	cfg.DatabaseURL = required("DATABASE_URL")
	cfg.AWSRegion = required("AWS_REGION")
	cfg.CognitoUserPoolID = required("COGNITO_USER_POOL_ID")
	cfg.CognitoClientID = required("COGNITO_CLIENT_ID")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.CognitoClientSecret = os.Getenv("COGNITO_CLIENT_SECRET")
	cfg.ServerPort = getEnvDefault("SERVER_PORT", "8080")
	cfg.RefreshTTL = getEnvDuration("REFRESH_TTL", 30*24*time.Hour)
	cfg.InjectAuthorizationHeader = getEnvBool("INJECT_AUTHORIZATION_HEADER", false)

	return cfg, nil
}

// issuer returns the Cognito user-pool issuer URL.
func (c *envConfig) issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.AWSRegion, c.CognitoUserPoolID)
}

// jwksURL returns the signing-key discovery document URL.
func (c *envConfig) jwksURL() string {
	return c.issuer() + "/.well-known/jwks.json"
}

func getEnvDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvBool(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
