package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cis-commerce/occ-returns/pkg/config"
	pkgsecrets "github.com/cis-commerce/occ-returns/pkg/secrets"
)

// Resolver fetches the OCC endpoint secret from a secrets provider and
// overlays it onto the runtime configuration, caching the raw secret map
// between lookups. Recognized keys mirror the environment options:
// refresh_token_url, returns_list_url, create_comment_url,
// delete_comment_url, power_automate_url. Missing keys leave the
// environment-provided values in place.
type Resolver struct {
	logger   *zap.Logger
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[map[string]string]
	secretID string
}

// NewResolver constructs an endpoint resolver for one secret.
func NewResolver(
	logger *zap.Logger,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[map[string]string],
	secretID string,
) *Resolver {
	return &Resolver{
		logger:   logger,
		provider: provider,
		cache:    cache,
		secretID: secretID,
	}
}

// Apply resolves the secret and overrides cfg's endpoint URLs with any
// present values.
func (r *Resolver) Apply(ctx context.Context, cfg *config.Config) error {
	values, ok := r.cache.Get(r.secretID)
	if !ok {
		fetched, err := r.provider.GetSecret(ctx, r.secretID)
		if err != nil {
			r.logger.Warn("aws.secret_fetch_failed",
				zap.String("key", r.secretID),
				zap.Error(err))
			return fmt.Errorf("resolve occ endpoints: %w", err)
		}
		r.cache.Put(r.secretID, fetched)
		values = fetched
	}

	applied := 0
	for key, target := range map[string]*string{
		"refresh_token_url":  &cfg.RefreshTokenURL,
		"returns_list_url":   &cfg.ReturnsListURL,
		"create_comment_url": &cfg.CreateCommentURL,
		"delete_comment_url": &cfg.DeleteCommentURL,
		"power_automate_url": &cfg.WebhookURL,
	} {
		if v := values[key]; v != "" {
			*target = v
			applied++
		}
	}

	r.logger.Info("occ.endpoints.resolved",
		zap.String("secret", r.secretID),
		zap.Int("overrides", applied))

	return nil
}
