package token

import "time"

// Credential is the bearer token currently held by a Cache.
type Credential struct {
	AccessToken string
	TokenType   string
	ValidUntil  time.Time
}

// Config points the cache at an OAuth2 client-credentials endpoint.
type Config struct {
	URL          string
	ClientID     string
	ClientSecret string
	Scope        string
}
