// Package notify pushes cycle results to a Discord webhook as rich
// embeds.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/modelrank/internal/domain/delta"
	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/pkg/logger"
	"github.com/okian/modelrank/pkg/metrics"
)

// Embed accent colors.
const (
	colorRankings = 0x5865F2
	colorNew      = 0x00FF00
	colorSummary  = 0x1E88E5
)

// Default delivery behavior.
const (
	defaultTopN       = 5
	defaultTimeout    = 10 * time.Second
	defaultRateDelay  = time.Second
	defaultRetryDelay = 2 * time.Second
)

// embed is the Discord webhook embed payload shape.
type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Discord delivers cycle notifications to a webhook URL. A Discord with
// an empty URL or disabled flag drops every send silently, so callers
// never branch on whether notifications are configured.
type Discord struct {
	http       *resty.Client
	webhookURL string
	enabled    bool
	topN       int
	timeout    time.Duration
	rateDelay  time.Duration
	retryDelay time.Duration
	log        logger.Logger
}

// NewDiscord creates a notifier for the given webhook URL. An empty URL
// yields a disabled notifier.
func NewDiscord(webhookURL string, opts ...Option) *Discord {
	d := &Discord{
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
		topN:       defaultTopN,
		timeout:    defaultTimeout,
		rateDelay:  defaultRateDelay,
		retryDelay: defaultRetryDelay,
		log:        logger.Named("notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.webhookURL == "" {
		d.enabled = false
	}

	d.http = resty.New().SetTimeout(d.timeout)
	return d
}

// Enabled reports whether sends will actually deliver.
func (d *Discord) Enabled() bool { return d.enabled }

// SendTopRankings delivers the day's leaderboard with movement against
// the prior ranking.
func (d *Discord) SendTopRankings(ctx context.Context, date string, models []model.RankedModel, prior map[string]int) error {
	if !d.enabled {
		d.log.Debug(ctx, "notifications disabled, skipping rankings embed")
		return nil
	}

	e := embed{
		Title:       fmt.Sprintf("📊 Model Rankings Top %d", d.topN),
		Description: "📅 " + date,
		Color:       colorRankings,
	}

	for i, m := range models {
		if i >= d.topN {
			break
		}
		mv := delta.Resolve(prior, m.Record.ID, m.Rank)
		e.Fields = append(e.Fields, embedField{
			Name: fmt.Sprintf("%d. %s", m.Rank, m.Record.Name),
			Value: fmt.Sprintf("🔸 Rank Score: %s\n📈 Previous Rank: %s %s\n📏 Context: %s",
				formatScore(m.RankScore),
				movementText(mv),
				movementEmoji(mv),
				formatContext(m.Record.ContextLength),
			),
		})
	}

	return d.sendEmbed(ctx, e)
}

// SendNewModels announces models seen for the first time this cycle.
// Sending an empty batch is a no-op.
func (d *Discord) SendNewModels(ctx context.Context, fresh []model.Record) error {
	if !d.enabled || len(fresh) == 0 {
		return nil
	}

	e := embed{
		Title: "🆕 New models have been added",
		Color: colorNew,
	}
	for _, rec := range fresh {
		e.Fields = append(e.Fields, embedField{
			Name:  rec.Name,
			Value: fmt.Sprintf("Provider: %s\nContext: %d", rec.Provider, rec.ContextLength),
		})
	}

	return d.sendEmbed(ctx, e)
}

// SendSummary delivers the cycle's aggregate statistics.
func (d *Discord) SendSummary(ctx context.Context, totalModels int, totalScore float64, newCount int) error {
	if !d.enabled {
		return nil
	}

	e := embed{
		Title: "📊 Statistical Summary",
		Color: colorSummary,
		Fields: []embedField{
			{Name: "Total Models", Value: fmt.Sprintf("%d", totalModels), Inline: true},
			{Name: "Total Rank Score", Value: formatScore(totalScore), Inline: true},
			{Name: "Added Models", Value: fmt.Sprintf("%d", newCount), Inline: true},
		},
	}

	return d.sendEmbed(ctx, e)
}

// sendEmbed posts one embed, pausing first for rate-limit headroom and
// retrying once on failure.
func (d *Discord) sendEmbed(ctx context.Context, e embed) error {
	payload := webhookPayload{Embeds: []embed{e}}

	if err := sleepCtx(ctx, d.rateDelay); err != nil {
		return err
	}
	err := d.post(ctx, payload)
	if err == nil {
		metrics.RecordNotificationSent()
		return nil
	}
	d.log.Warn(ctx, "webhook delivery failed, retrying", logger.Error(err))

	if err := sleepCtx(ctx, d.retryDelay); err != nil {
		return err
	}
	if err := d.post(ctx, payload); err != nil {
		metrics.RecordNotificationFailed()
		return fmt.Errorf("%w: %w", ErrWebhookFailed, err)
	}
	metrics.RecordNotificationSent()
	return nil
}

func (d *Discord) post(ctx context.Context, payload webhookPayload) error {
	resp, err := d.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("notification cancelled: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// movementText renders "#prev → #cur (+n)" for a mover and "#cur" for a
// model holding its rank.
func movementText(mv delta.Movement) string {
	switch {
	case mv.Delta > 0:
		return fmt.Sprintf("#%d → #%d (+%d)", mv.PriorRank, mv.CurrentRank, mv.Delta)
	case mv.Delta < 0:
		return fmt.Sprintf("#%d → #%d (%d)", mv.PriorRank, mv.CurrentRank, mv.Delta)
	default:
		return fmt.Sprintf("#%d", mv.CurrentRank)
	}
}

func movementEmoji(mv delta.Movement) string {
	switch {
	case mv.Delta > 0:
		return "📈"
	case mv.Delta < 0:
		return "📉"
	default:
		return "➡️"
	}
}

// formatScore renders a score in millions, rolling over to billions at
// one thousand.
func formatScore(score float64) string {
	if score >= 1000 {
		return fmt.Sprintf("%.2fB", score/1000)
	}
	return fmt.Sprintf("%.1fM", score)
}

// formatContext renders a context window in K units when it is at least
// one kibi-token.
func formatContext(contextLength int) string {
	if contextLength >= 1024 {
		return fmt.Sprintf("%dK", contextLength/1024)
	}
	return fmt.Sprintf("%d", contextLength)
}
