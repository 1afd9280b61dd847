package occ

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"
)

const (
	// Cached token files outside this byte range are treated as stale or
	// corrupt and replaced. The issuer response carries no expiry timestamp,
	// so file size is the only freshness signal the upstream contract offers.
	tokenMinSize = 160
	tokenMaxSize = 196 // exclusive
)

// TokenStore owns the local token cache file and the refresh endpoint. It is
// the only writer of the cache: the file always holds the most recently
// issued token, and a missing, mis-sized or unparseable cache is replaced
// before any credential is handed out.
type TokenStore struct {
	logger     *zap.Logger
	httpc      *http.Client
	path       string
	refreshURL string
}

// NewTokenStore creates a TokenStore persisting to path and refreshing
// against refreshURL.
func NewTokenStore(logger *zap.Logger, httpc *http.Client, path, refreshURL string) *TokenStore {
	return &TokenStore{
		logger:     logger,
		httpc:      httpc,
		path:       path,
		refreshURL: refreshURL,
	}
}

// Load returns the cached token, refreshing first when the cache is missing,
// outside the expected size range, or unreadable as JSON.
func (s *TokenStore) Load(ctx context.Context) (*Token, error) {
	info, err := os.Stat(s.path)
	if err != nil || info.Size() < tokenMinSize || info.Size() >= tokenMaxSize {
		return s.Refresh(ctx)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.Refresh(ctx)
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil || tok.AccessToken == "" {
		s.logger.Warn("occ.token.cache_corrupt",
			zap.String("path", s.path),
			zap.Error(err))
		return s.Refresh(ctx)
	}

	return &tok, nil
}

// Refresh requests a fresh token from the refresh endpoint (POST, no body)
// and overwrites the cache before returning it.
func (s *TokenStore) Refresh(ctx context.Context) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.refreshURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("occ: refresh token: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(resp.Body)
	if !success(resp.StatusCode) {
		return nil, fmt.Errorf("occ: refresh token: %w", &APIError{
			Op:     "refresh_token",
			Status: resp.StatusCode,
			Body:   body,
		})
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("occ: decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("occ: refresh returned empty access_token")
	}

	if err := s.Save(&tok); err != nil {
		return nil, err
	}

	s.logger.Info("occ.token.refreshed",
		zap.String("token_type", tok.TokenType),
		zap.Int64("expires_in_sec", tok.ExpiresIn))

	return &tok, nil
}

// Save overwrites the cache file with indented JSON, non-ASCII preserved.
func (s *TokenStore) Save(tok *Token) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tok); err != nil {
		return fmt.Errorf("occ: encode token: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("occ: save token cache: %w", err)
	}
	return nil
}
