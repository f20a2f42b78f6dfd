package utils

import (
	"os"
	"strconv"
	"time"
)

type ServerConfig struct {
	// ListenAddr defaults to loopback; the daemon is not meant to be
	// reachable from other machines.
	ListenAddr string
}

func LoadServerConfig() ServerConfig {
	addr := os.Getenv("OVERBRIDGE_LISTEN_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8765"
	}
	return ServerConfig{ListenAddr: addr}
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
	// PairingCode, when set, gates the API behind the pairing flow. Empty
	// means the loopback listener is trusted as-is.
	PairingCode string
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("OVERBRIDGE_JWT_SECRET")
	if secret == "" {
		// dev default (change for production use)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("OVERBRIDGE_JWT_ISSUER")
	if issuer == "" {
		issuer = "overbridge"
	}

	duration := 24 * time.Hour
	if ttl := os.Getenv("OVERBRIDGE_JWT_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			duration = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: duration,
		PairingCode: os.Getenv("OVERBRIDGE_PAIRING_CODE"),
	}
}
