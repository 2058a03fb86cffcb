package api

import (
	"net/http"
	"strings"

	"modelgateway/internal/config"
	"modelgateway/internal/gateway"
	"modelgateway/internal/provider"
)

// extractBearer pulls the bearer token from the Authorization header.
func extractBearer(r *http.Request) (string, error) {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return "", gateway.Unauthorized("Missing authorization header")
	}
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok {
		return "", gateway.Unauthorized("Authorization must use Bearer token")
	}
	if strings.TrimSpace(token) == "" {
		return "", gateway.Unauthorized("Bearer token is empty")
	}
	return token, nil
}

// validateGatewayKey checks the token against the inbound allow-list. An
// empty list accepts any bearer.
func validateGatewayKey(cfg config.Config, token string) error {
	if len(cfg.GatewayAPIKeys) == 0 {
		return nil
	}
	for _, key := range cfg.GatewayAPIKeys {
		if key == token {
			return nil
		}
	}
	return gateway.Unauthorized("Invalid gateway API key")
}

// resolveProviderAPIKey validates the inbound bearer, then picks the
// upstream credential: a configured provider key wins, otherwise the
// client's own bearer is forwarded.
func resolveProviderAPIKey(cfg config.Config, token string, id provider.Identity) (string, error) {
	if err := validateGatewayKey(cfg, token); err != nil {
		return "", err
	}
	if configured := cfg.APIKey(string(id)); configured != "" {
		return configured, nil
	}
	return token, nil
}
