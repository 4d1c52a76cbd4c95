// Package token obtains and caches the bearer credential used for delivery.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const requestTimeout = 10 * time.Second

// Cache owns exactly one Credential and refreshes it once it has expired.
// It is not safe for concurrent use; the delivery worker is its only user.
type Cache struct {
	oauth      clientcredentials.Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	credential Credential
}

func NewCache(cfg Config, logger *slog.Logger) *Cache {
	return &Cache{
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.URL,
			Scopes:       []string{cfg.Scope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureValid requests a new token when the cached one has expired or was
// never obtained. Failures are logged and the previous credential, possibly
// empty or stale, is kept.
func (c *Cache) EnsureValid(ctx context.Context) {
	now := c.now()
	if now.Before(c.credential.ValidUntil) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			c.logger.Error(fmt.Sprintf("Got HTTP status %d requesting token", retrieveErr.Response.StatusCode))
			return
		}
		c.logger.Error("Error requesting token", "error", err)
		return
	}

	c.credential = Credential{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ValidUntil:  now.Add(expiresIn(tok)),
	}
	c.logger.Debug("Obtained token", "type", tok.TokenType, "validUntil", c.credential.ValidUntil)
}

// AuthorizationHeader returns "<type> <token>" for the current credential.
func (c *Cache) AuthorizationHeader() string {
	return c.credential.TokenType + " " + c.credential.AccessToken
}

func (c *Cache) Credential() Credential {
	return c.credential
}

// expiresIn reads the raw "expires_in" field. Zero when absent, which makes
// the next call refresh again.
func expiresIn(tok *oauth2.Token) time.Duration {
	var seconds float64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = v
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		seconds = parsed
	}
	return time.Duration(seconds * float64(time.Second))
}
