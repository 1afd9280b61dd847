package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the occ-returns job.
type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	// OCC endpoints. CreateCommentURL and DeleteCommentURL are templates with
	// {returnNumber} and {commentNumber} placeholders.
	RefreshTokenURL  string
	ReturnsListURL   string
	CreateCommentURL string
	DeleteCommentURL string

	// Power Automate webhook receiving the final batch.
	WebhookURL string

	// TokenPath is the local token cache file.
	TokenPath string
	// OutputPath receives a JSON dump of the final payload for audit.
	OutputPath string

	// HTTPTimeout bounds every outbound request. The upstream contract has no
	// timeout of its own; this is a deliberate safety limit.
	HTTPTimeout time.Duration

	// Returns-list query defaults.
	LookbackDays int
	PageSize     int
	CurrentPage  int
	Fields       string
	Sort         string
	ContentType  string
	Country      string
	Channel      string

	// PendingStatus is the exact statusDisplay label marking a return as
	// awaiting approval. Matching is verbatim and breaks if OCC changes the
	// label or locale; the label is configurable for that reason.
	PendingStatus  string
	SentinelAuthor string
	ProbeComment   string

	RateLimitRPS   int
	RateLimitBurst int

	// Optional AWS Secrets Manager override for the endpoint block.
	AWSRegion      string
	OCCSecretID    string
	SecretCacheTTL time.Duration
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:      GetEnv("SERVICE_NAME", "occ-returns"),
		Env:              GetEnv("ENV", "dev"),
		LogLevel:         GetEnv("LOG_LEVEL", "info"),
		RefreshTokenURL:  GetEnv("REFRESH_TOKEN_URL", ""),
		ReturnsListURL:   GetEnv("RETURNS_LIST_URL", ""),
		CreateCommentURL: GetEnv("CREATE_COMMENT_URL", ""),
		DeleteCommentURL: GetEnv("DELETE_COMMENT_URL", ""),
		WebhookURL:       GetEnv("POWER_AUTOMATE_URL", ""),
		TokenPath:        GetEnv("TOKEN_PATH", "./token.json"),
		OutputPath:       GetEnv("OUTPUT_PATH", "./output.json"),
		HTTPTimeout:      GetEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		LookbackDays:     GetEnvInt("LOOKBACK_DAYS", 30),
		PageSize:         GetEnvInt("PAGE_SIZE", 30),
		CurrentPage:      GetEnvInt("CURRENT_PAGE", 0),
		Fields:           GetEnv("FIELDS", "BASIC,CIS_BOSS_BASIC,FULL"),
		Sort:             GetEnv("SORT", "date:asc"),
		ContentType:      GetEnv("CONTENT_TYPE", "application/json"),
		Country:          GetEnv("COUNTRY", "KZ"),
		Channel:          GetEnv("CHANNEL", "WEB"),
		PendingStatus:    GetEnv("PENDING_STATUS", "Ожидает утверждения"),
		SentinelAuthor:   GetEnv("SENTINEL_AUTHOR", "Anonymous"),
		ProbeComment:     GetEnv("PROBE_COMMENT", "."),
		RateLimitRPS:     GetEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:   GetEnvInt("RATE_LIMIT_BURST", 5),
		AWSRegion:        GetEnv("AWS_REGION", "us-east-2"),
		OCCSecretID:      GetEnv("OCC_SECRET_ID", ""),
		SecretCacheTTL:   GetEnvDuration("SECRET_CACHE_TTL", 1*time.Hour),
	}
}
