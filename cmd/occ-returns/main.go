package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	internalsecrets "github.com/cis-commerce/occ-returns/internal/secrets"

	"github.com/cis-commerce/occ-returns/internal/occ"
	"github.com/cis-commerce/occ-returns/internal/powerautomate"
	"github.com/cis-commerce/occ-returns/internal/rate"
	"github.com/cis-commerce/occ-returns/internal/returns"
	"github.com/cis-commerce/occ-returns/pkg/config"
	"github.com/cis-commerce/occ-returns/pkg/logger"
	"github.com/cis-commerce/occ-returns/pkg/secrets"
	"github.com/cis-commerce/occ-returns/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [occ-returns]...")

	// --- Optional endpoint override from AWS Secrets Manager ---
	if cfg.OCCSecretID != "" {
		awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		secretCache := secrets.NewCache[map[string]string](cfg.SecretCacheTTL)
		resolver := internalsecrets.NewResolver(logg.Desugar(), awsProvider, secretCache, cfg.OCCSecretID)
		if err := resolver.Apply(ctx, cfg); err != nil {
			logg.Fatalw("failed to resolve OCC endpoints", "error", err)
		}
	}

	for name, value := range map[string]string{
		"REFRESH_TOKEN_URL":  cfg.RefreshTokenURL,
		"RETURNS_LIST_URL":   cfg.ReturnsListURL,
		"CREATE_COMMENT_URL": cfg.CreateCommentURL,
		"DELETE_COMMENT_URL": cfg.DeleteCommentURL,
		"POWER_AUTOMATE_URL": cfg.WebhookURL,
	} {
		if value == "" {
			logg.Fatalw("missing required endpoint configuration", "option", name)
		}
	}

	logg.Infow("occ endpoints",
		"returns_list", utils.MaskURL(cfg.ReturnsListURL),
		"webhook", utils.MaskURL(cfg.WebhookURL),
		"token_path", cfg.TokenPath,
		"lookback_days", cfg.LookbackDays)

	// --- Wiring ---
	httpc := &http.Client{Timeout: cfg.HTTPTimeout}

	tokens := occ.NewTokenStore(logg.Desugar(), httpc, cfg.TokenPath, cfg.RefreshTokenURL)

	limiter := rate.New(rate.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})

	client := occ.NewClient(logg.Desugar(), httpc, tokens, limiter, occ.Endpoints{
		ReturnsList:   cfg.ReturnsListURL,
		CreateComment: cfg.CreateCommentURL,
		DeleteComment: cfg.DeleteCommentURL,
	})

	webhook := powerautomate.NewClient(logg.Desugar(), httpc, cfg.WebhookURL)

	svc := returns.NewService(logg.Desugar(), cfg, client, webhook)

	// --- One batch run ---
	if err := svc.Run(ctx); err != nil {
		logg.Fatalw("returns batch failed", "error", err)
	}

	logg.Info("[occ-returns] done")
}
