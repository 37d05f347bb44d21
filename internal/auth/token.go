// Package auth stores the bearer token and exposes it as an oauth2.TokenSource.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"aide/internal/service"
)

// FileSource reads the stored token on every call.
// Wrap it with oauth2.ReuseTokenSource to read the file once per process.
type FileSource struct {
	Path string
}

// NewSource returns a caching token source over the token file at path.
func NewSource(path string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &FileSource{Path: path})
}

// Token implements oauth2.TokenSource.
// Returns service.ErrNoToken when the file is missing or holds no access token.
func (s *FileSource) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, service.ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}
	if token.AccessToken == "" {
		return nil, service.ErrNoToken
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	return &token, nil
}

// Save writes token to path with mode 0600.
func Save(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Info is what can be read from a token without verifying it.
type Info struct {
	// JWT is false for opaque tokens; the other fields are then empty.
	JWT     bool
	Subject string
	Expiry  time.Time
}

// Expired reports whether the token carries an expiry that has passed at now.
func (i Info) Expired(now time.Time) bool {
	return !i.Expiry.IsZero() && !now.Before(i.Expiry)
}

// Inspect reads the subject and expiry of a JWT access token.
// The signature is not checked; the backend remains the authority.
func Inspect(raw string) Info {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return Info{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Info{}
	}

	info := Info{JWT: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.Expiry = exp.Time
	}
	return info
}

// NewToken builds the token stored by login, with Expiry taken from the JWT if present.
func NewToken(raw string) *oauth2.Token {
	raw = strings.TrimSpace(raw)
	return &oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
		Expiry:      Inspect(raw).Expiry,
	}
}
