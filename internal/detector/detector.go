// Package detector runs the per-message misinformation pipeline: pre-filters,
// the automatic-check limiter, context collection, analysis with fallback,
// recurrence tracking, the alert decision and the event log.
package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/config"
	"github.com/mangomango3x/Discord-fact-check/internal/conversation"
	"github.com/mangomango3x/Discord-fact-check/internal/decision"
	"github.com/mangomango3x/Discord-fact-check/internal/eventlog"
	"github.com/mangomango3x/Discord-fact-check/internal/logging"
	"github.com/mangomango3x/Discord-fact-check/internal/metrics"
	"github.com/mangomango3x/Discord-fact-check/internal/patterns"
	"github.com/mangomango3x/Discord-fact-check/internal/ratelimit"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// ErrRateLimited is returned by the command path when the caller is over
// the command limit.
var ErrRateLimited = errors.New("rate limited")

// Skip reasons reported in Outcome.Reason.
const (
	ReasonDisabled     = "disabled"
	ReasonTooShort     = "too_short"
	ReasonContainsLink = "contains_link"
	ReasonQuestion     = "question"
	ReasonRateLimited  = "auto_check_limit"
	ReasonUnavailable  = "providers_unavailable"
	ReasonInternal     = "internal_error"
)

var questionWords = map[string]bool{
	"what": true, "how": true, "when": true, "where": true, "why": true,
	"who": true, "which": true, "can": true, "could": true, "would": true,
	"should": true, "is": true, "are": true, "do": true, "does": true, "did": true,
}

// Analyzer produces analyses. *analysis.Orchestrator implements it.
type Analyzer interface {
	Analyze(ctx context.Context, statement string, window types.ContextWindow, communityID string) (*types.AnalysisResult, error)
	Rate(ctx context.Context, statement string) (*types.AnalysisResult, error)
}

// Alert is published for every alerting decision.
type Alert struct {
	MessageID   string               `json:"message_id"`
	ChannelID   string               `json:"channel_id"`
	CommunityID string               `json:"community_id"`
	UserID      string               `json:"user_id"`
	Decision    types.Decision       `json:"decision"`
	Analysis    types.AnalysisResult `json:"analysis"`
	Patterns    types.PatternInfo    `json:"patterns"`
	EventID     string               `json:"event_id,omitempty"`
}

// AlertSink receives alerts. Publish must not block for long.
type AlertSink interface {
	Publish(alert Alert)
}

// Deps are the components the pipeline runs through. All are required
// except Sink.
type Deps struct {
	Settings    *config.Runtime
	AutoLimiter *ratelimit.Limiter
	CmdLimiter  *ratelimit.Limiter
	Collector   *conversation.Collector
	Analyzer    Analyzer
	Patterns    *patterns.Store
	Events      *eventlog.Log
	Sink        AlertSink
}

// Detector evaluates messages. It is safe for concurrent use; messages
// from different channels may be processed in parallel.
type Detector struct {
	deps   Deps
	salt   string
	logger *zap.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithIdentitySalt sets the salt used to anonymize authors in the event log.
func WithIdentitySalt(salt string) Option {
	return func(d *Detector) { d.salt = salt }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) { d.logger = logging.OrNop(logger) }
}

// New creates a Detector.
func New(deps Deps, opts ...Option) (*Detector, error) {
	switch {
	case deps.Settings == nil:
		return nil, errors.New("detector: settings are required")
	case deps.AutoLimiter == nil || deps.CmdLimiter == nil:
		return nil, errors.New("detector: rate limiters are required")
	case deps.Collector == nil:
		return nil, errors.New("detector: context collector is required")
	case deps.Analyzer == nil:
		return nil, errors.New("detector: analyzer is required")
	case deps.Patterns == nil:
		return nil, errors.New("detector: pattern store is required")
	case deps.Events == nil:
		return nil, errors.New("detector: event log is required")
	}
	d := &Detector{deps: deps, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Process runs one message through the pipeline. Only caller contract
// violations are returned as errors; every other failure is folded into
// the outcome.
func (d *Detector) Process(ctx context.Context, msg *types.Message) (out *types.Outcome, err error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("detector: pipeline panic",
				zap.String("message_id", msg.ID),
				zap.Any("panic", r))
			out = &types.Outcome{MessageID: msg.ID, Status: types.OutcomeCouldNotEvaluate, Reason: ReasonInternal}
			err = nil
		}
		if out != nil {
			metrics.MessagesTotal.WithLabelValues(string(out.Status)).Inc()
			d.logger.Debug("detector: message processed",
				zap.String("message_id", msg.ID),
				zap.String("status", string(out.Status)),
				zap.String("reason", out.Reason),
				zap.Duration("elapsed", time.Since(start)))
		}
	}()

	s := d.deps.Settings.Get()
	if reason := skipReason(msg.Content, s); reason != "" {
		return &types.Outcome{MessageID: msg.ID, Status: types.OutcomeSkipped, Reason: reason}, nil
	}

	if !d.deps.AutoLimiter.Allow(msg.Author.Key(), s.AutoCheckWindow.Duration(), s.AutoCheckMax) {
		return &types.Outcome{MessageID: msg.ID, Status: types.OutcomeRateLimited, Reason: ReasonRateLimited}, nil
	}

	return d.evaluate(ctx, msg, s), nil
}

func (d *Detector) evaluate(ctx context.Context, msg *types.Message, s config.Settings) *types.Outcome {
	community := msg.Author.Community()
	out := &types.Outcome{MessageID: msg.ID}

	out.Context = d.deps.Collector.Collect(ctx, msg.ChannelID, msg.ID, s.ContextLookback)

	result, err := d.analyze(ctx, msg.Content, out.Context, community)
	if err != nil {
		d.logger.Error("detector: could not evaluate message",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		out.Status = types.OutcomeCouldNotEvaluate
		out.Reason = ReasonUnavailable
		return out
	}
	out.Analysis = result
	out.Status = types.OutcomeEvaluated

	th := s.Thresholds()
	if suppressed, reason := decision.Suppressed(*result, th); suppressed {
		out.Decision = &types.Decision{Reason: reason}
		return out
	}

	info := d.recordPatterns(ctx, msg, community, s.RecurringThreshold)
	out.Patterns = info

	verdict := decision.Decide(*result, *info, th)
	out.Decision = &verdict
	if verdict.Alert {
		d.recordAlert(ctx, msg, community, *result, *info, verdict)
	}
	return out
}

// analyze tries the full community-context analysis, then the rating path.
func (d *Detector) analyze(ctx context.Context, statement string, window types.ContextWindow, community string) (*types.AnalysisResult, error) {
	result, err := d.deps.Analyzer.Analyze(ctx, statement, window, community)
	if err == nil {
		return result, nil
	}
	d.logger.Warn("detector: context analysis unavailable, trying rating", zap.Error(err))

	result, rateErr := d.deps.Analyzer.Rate(ctx, statement)
	if rateErr != nil {
		return nil, fmt.Errorf("analyze: %w; rate: %w", err, rateErr)
	}
	return result, nil
}

// recordPatterns updates recurrence data. A store failure never blocks the
// decision: the in-memory answer is used, or an empty one if none exists.
func (d *Detector) recordPatterns(ctx context.Context, msg *types.Message, community string, threshold int) *types.PatternInfo {
	phrases := patterns.ExtractKeyPhrases(msg.Content)
	info, err := d.deps.Patterns.RecordAndQuery(ctx, community, phrases, msg.Content, threshold)
	if err != nil {
		d.logger.Error("detector: pattern recording failed",
			zap.String("community", community),
			zap.Error(err))
	}
	if info == nil {
		info = &types.PatternInfo{KeyPhrases: phrases}
	}
	return info
}

func (d *Detector) recordAlert(ctx context.Context, msg *types.Message, community string, result types.AnalysisResult, info types.PatternInfo, verdict types.Decision) {
	metrics.AlertsTotal.WithLabelValues(string(verdict.Severity)).Inc()

	ev, err := d.deps.Events.Append(ctx, community, types.Event{
		IdentityHash:    msg.Author.Hash(d.salt),
		TruthinessScore: result.TruthinessPercent,
		Urgency:         result.Urgency,
		Severity:        verdict.Severity,
		KeyPhrases:      info.KeyPhrases,
	})
	if err != nil {
		d.logger.Error("detector: event log append failed",
			zap.String("community", community),
			zap.Error(err))
	}

	d.logger.Info("detector: alert",
		zap.String("message_id", msg.ID),
		zap.String("community", community),
		zap.String("identity", msg.Author.Hash(d.salt)),
		zap.String("severity", string(verdict.Severity)),
		zap.Float64("truthiness", result.TruthinessPercent),
		zap.String("provider", result.ProviderUsed))

	if d.deps.Sink != nil {
		d.deps.Sink.Publish(Alert{
			MessageID:   msg.ID,
			ChannelID:   msg.ChannelID,
			CommunityID: community,
			UserID:      msg.Author.Key(),
			Decision:    verdict,
			Analysis:    result,
			Patterns:    info,
			EventID:     ev.ID,
		})
	}
}

// AllowCommand applies the strict command limiter to a user.
func (d *Detector) AllowCommand(identity types.Identity) bool {
	s := d.deps.Settings.Get()
	return d.deps.CmdLimiter.Allow(identity.Key(), s.CommandWindow.Duration(), s.CommandMax)
}

// RateStatement is the on-demand command: a single truthiness rating,
// subject to the command limiter.
func (d *Detector) RateStatement(ctx context.Context, identity types.Identity, statement string) (*types.AnalysisResult, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(statement) == "" {
		return nil, fmt.Errorf("%w: statement is required", types.ErrInvalidMessage)
	}
	if !d.AllowCommand(identity) {
		return nil, ErrRateLimited
	}
	return d.deps.Analyzer.Rate(ctx, statement)
}

// skipReason applies the cheap pre-filters. Empty means evaluate. Length is
// counted in runes and must exceed the minimum.
func skipReason(content string, s config.Settings) string {
	trimmed := strings.TrimSpace(content)
	switch {
	case !s.Enabled:
		return ReasonDisabled
	case utf8.RuneCountInString(trimmed) <= s.MinMessageLength:
		return ReasonTooShort
	case strings.Contains(strings.ToLower(trimmed), "http"):
		return ReasonContainsLink
	case isQuestion(trimmed):
		return ReasonQuestion
	}
	return ""
}

func isQuestion(trimmed string) bool {
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	fields := strings.Fields(trimmed)
	return len(fields) > 0 && questionWords[strings.ToLower(fields[0])]
}
