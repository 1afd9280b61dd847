package returns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cis-commerce/occ-returns/internal/occ"
	"github.com/cis-commerce/occ-returns/pkg/config"
)

// API is the slice of the OCC client the orchestrator uses.
type API interface {
	ListReturns(ctx context.Context, req occ.ListRequest) (*occ.ReturnsPage, error)
	CreateComment(ctx context.Context, returnNumber int64, text string) (*occ.Return, error)
	DeleteComment(ctx context.Context, returnNumber, commentNumber int64) error
}

// Webhook delivers the final batch payload downstream.
type Webhook interface {
	Send(ctx context.Context, payload any) error
}

// Payload is the batch body POSTed to the webhook. ReturnsList and
// ReturnsDataList forward the upstream JSON verbatim.
type Payload struct {
	RunID             string             `json:"run_id"`
	GeneratedAt       time.Time          `json:"generated_at"`
	IncompleteReturns []int64            `json:"incomplete_returns"`
	ReturnsList       json.RawMessage    `json:"returns_list"`
	ReturnsDataList   []json.RawMessage  `json:"returns_data_list"`
	SimplifiedReturns []SimplifiedReturn `json:"simplified_returns"`
}

// Service drives one returns batch: list, filter, probe, simplify, deliver.
// Everything runs sequentially; return N's probe and cleanup complete before
// return N+1's begin.
type Service struct {
	logger  *zap.Logger
	cfg     *config.Config
	api     API
	webhook Webhook
	mapper  *Mapper
	now     func() time.Time
}

// NewService constructs the orchestrator.
func NewService(logger *zap.Logger, cfg *config.Config, api API, webhook Webhook) *Service {
	return &Service{
		logger:  logger,
		cfg:     cfg,
		api:     api,
		webhook: webhook,
		mapper:  NewMapper(),
		now:     time.Now,
	}
}

// Run executes one batch end to end. Any token or HTTP error aborts the run
// with an error naming the failed stage; nothing is delivered on failure.
func (s *Service) Run(ctx context.Context) error {
	runID := uuid.NewString()
	window := NewWindow(s.now(), s.cfg.LookbackDays)

	s.logger.Info("returns.run.start",
		zap.String("run_id", runID),
		zap.String("date_from", window.From),
		zap.String("date_to", window.To))

	pageSize := s.cfg.PageSize
	currentPage := s.cfg.CurrentPage
	page, err := s.api.ListReturns(ctx, occ.ListRequest{
		DateFrom:    window.From,
		DateTo:      window.To,
		PageSize:    &pageSize,
		CurrentPage: &currentPage,
		Fields:      s.cfg.Fields,
		Sort:        s.cfg.Sort,
		ContentType: s.cfg.ContentType,
		Country:     s.cfg.Country,
		Channel:     s.cfg.Channel,
	})
	if err != nil {
		return fmt.Errorf("list returns: %w", err)
	}

	pending := s.pendingCodes(page)
	s.logger.Info("returns.pending_selected",
		zap.String("run_id", runID),
		zap.Int("total", len(page.Returns)),
		zap.Int("pending", len(pending)))

	details, err := s.probeDetails(ctx, pending)
	if err != nil {
		return err
	}

	simplified, recErrs := s.mapper.Simplify(page.Returns, details, pending)
	for _, recErr := range recErrs {
		s.logger.Warn("returns.simplify.skipped_record", zap.Error(recErr))
	}

	rawDetails := make([]json.RawMessage, 0, len(details))
	for _, d := range details {
		rawDetails = append(rawDetails, d.Raw)
	}

	payload := &Payload{
		RunID:             runID,
		GeneratedAt:       s.now().UTC(),
		IncompleteReturns: pending,
		ReturnsList:       page.Raw,
		ReturnsDataList:   rawDetails,
		SimplifiedReturns: simplified,
	}

	if err := s.webhook.Send(ctx, payload); err != nil {
		return fmt.Errorf("deliver batch: %w", err)
	}

	if s.cfg.OutputPath != "" {
		if err := s.writeOutput(payload); err != nil {
			// The audit dump is optional; the batch already landed.
			s.logger.Warn("returns.output.write_failed",
				zap.String("path", s.cfg.OutputPath),
				zap.Error(err))
		}
	}

	s.logger.Info("returns.run.complete",
		zap.String("run_id", runID),
		zap.Int("pending", len(pending)),
		zap.Int("simplified", len(simplified)),
		zap.Int("skipped", len(recErrs)))

	return nil
}

// pendingCodes selects returns whose statusDisplay equals the configured
// pending-approval label, preserving list order. The match is verbatim and
// will miss returns if OCC renames or re-localizes the label.
func (s *Service) pendingCodes(page *occ.ReturnsPage) []int64 {
	codes := make([]int64, 0, len(page.Returns))
	for _, r := range page.Returns {
		if r.StatusDisplay == s.cfg.PendingStatus {
			codes = append(codes, r.Code)
		}
	}
	return codes
}

// probeRef identifies a sentinel comment created by this run that has not
// been deleted yet.
type probeRef struct {
	returnCode  int64
	commentCode int64
}

// probeDetails fetches full detail for each pending return by posting a
// throwaway comment and deleting every sentinel-authored comment the response
// reveals. Failed deletes are retried in one cleanup pass at the end — also
// when a probe aborts the run — and anything still left on the upstream
// return is named in the returned error rather than dropped silently.
func (s *Service) probeDetails(ctx context.Context, pending []int64) ([]*occ.Return, error) {
	details := make([]*occ.Return, 0, len(pending))
	var leftover []probeRef

	for _, code := range pending {
		detail, err := s.api.CreateComment(ctx, code, s.cfg.ProbeComment)
		if err != nil {
			s.cleanupProbes(ctx, leftover)
			return nil, fmt.Errorf("probe return %d: %w", code, err)
		}

		for _, comment := range detail.CisComments {
			if comment.Author == nil || comment.Author.Name != s.cfg.SentinelAuthor {
				continue
			}
			if err := s.api.DeleteComment(ctx, code, comment.Code); err != nil {
				s.logger.Warn("returns.probe.delete_failed",
					zap.Int64("return", code),
					zap.Int64("comment", comment.Code),
					zap.Error(err))
				leftover = append(leftover, probeRef{returnCode: code, commentCode: comment.Code})
			}
		}

		details = append(details, detail)
	}

	if leaked := s.cleanupProbes(ctx, leftover); len(leaked) > 0 {
		first := leaked[0]
		return nil, fmt.Errorf("probe cleanup left %d sentinel comment(s) behind, first on return %d comment %d",
			len(leaked), first.returnCode, first.commentCode)
	}

	return details, nil
}

// cleanupProbes retries deletion of tracked sentinel comments and returns the
// refs that still could not be removed.
func (s *Service) cleanupProbes(ctx context.Context, refs []probeRef) []probeRef {
	var leaked []probeRef
	for _, ref := range refs {
		if err := s.api.DeleteComment(ctx, ref.returnCode, ref.commentCode); err != nil {
			s.logger.Error("returns.probe.cleanup_failed",
				zap.Int64("return", ref.returnCode),
				zap.Int64("comment", ref.commentCode),
				zap.Error(err))
			leaked = append(leaked, ref)
			continue
		}
		s.logger.Info("returns.probe.cleaned_up",
			zap.Int64("return", ref.returnCode),
			zap.Int64("comment", ref.commentCode))
	}
	return leaked
}

// writeOutput dumps the delivered payload to the configured audit file as
// indented JSON, non-ASCII preserved.
func (s *Service) writeOutput(payload *Payload) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(payload); err != nil {
		return err
	}
	return os.WriteFile(s.cfg.OutputPath, buf.Bytes(), 0o644)
}
