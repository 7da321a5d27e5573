// Package orchestrator produces one persona's reply: it shows the typing
// indicator, asks the generator for text against the channel's current
// history, and posts the result, a fallback, or an error notice.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/naveenspark/glitchcity/internal/metrics"
	"github.com/naveenspark/glitchcity/internal/store"
	"github.com/naveenspark/glitchcity/internal/typing"
	"github.com/naveenspark/glitchcity/pkg/domain"
	"github.com/naveenspark/glitchcity/pkg/generation"
)

// Outcome is how a response task ended.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailure Outcome = "failure"
)

// Config tunes the orchestrator.
type Config struct {
	HistoryWindow int               `yaml:"history_window"`
	MinTyping     time.Duration     `yaml:"min_typing"`
	Timeout       time.Duration     `yaml:"timeout"` // 0 waits as long as the generator takes
	Params        generation.Params `yaml:"params"`
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		HistoryWindow: 20,
		MinTyping:     1500 * time.Millisecond,
		Params:        generation.DefaultParams(),
	}
}

// Job is one persona asked to answer Trigger in ChannelID.
type Job struct {
	ChannelID string
	PersonaID string
	Trigger   string
}

// Orchestrator runs response jobs against a store.
type Orchestrator struct {
	store   *store.Store
	typing  *typing.Tracker
	gen     generation.Generator
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator.
func New(st *store.Store, tr *typing.Tracker, gen generation.Generator, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  st,
		typing: tr,
		gen:    gen,
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Respond runs one job to completion. It never panics on generator
// failure and always clears the persona's typing entry before returning.
func (o *Orchestrator) Respond(ctx context.Context, job Job) (out Outcome) {
	log := o.logger.With(zap.String("channel", job.ChannelID), zap.String("persona", job.PersonaID))
	defer func() {
		o.metrics.Outcome(string(out))
		log.Debug("response finished", zap.String("outcome", string(out)))
	}()

	persona, ok := o.eligible(job)
	if !ok {
		return OutcomeSkipped
	}

	o.typing.Add(persona.ID)
	o.metrics.Typing(o.typing.Len())
	defer func() {
		o.typing.Remove(persona.ID)
		o.metrics.Typing(o.typing.Len())
	}()
	start := time.Now()

	req := generation.Request{
		Persona:           persona.Username,
		SystemInstruction: SystemInstruction(persona),
		Context:           RenderHistory(o.store.Messages(job.ChannelID), o.cfg.HistoryWindow, o.displayName),
		Trigger:           job.Trigger,
		Params:            o.cfg.Params,
	}
	resp, err := o.generate(ctx, req)
	o.metrics.Latency(time.Since(start))

	o.waitTyping(ctx, start)

	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		o.store.AppendMessage(job.ChannelID, domain.Message{UserID: domain.SystemUserID, Content: ErrorNotice(err)})
		return OutcomeFailure
	}

	text, result := strings.TrimSpace(resp.Text), OutcomeSuccess
	if text == "" {
		log.Info("empty generation, posting fallback", zap.String("finish_reason", resp.FinishReason))
		text, result = Fallback, OutcomeEmpty
	}
	// Presence may have changed while we waited on the model; the store
	// re-checks it atomically with the append.
	if _, ok := o.store.AppendIfOnline(job.ChannelID, domain.Message{UserID: persona.ID, Content: text}); !ok {
		log.Info("persona went offline mid-reply, dropping post")
		return OutcomeSkipped
	}
	return result
}

// eligible checks the preconditions: a known, online persona with a
// personality, answering in a channel that takes text.
func (o *Orchestrator) eligible(job Job) (domain.User, bool) {
	if job.PersonaID == o.store.HumanID() || job.PersonaID == domain.SystemUserID {
		return domain.User{}, false
	}
	u, ok := o.store.User(job.PersonaID)
	if !ok || u.Personality == "" || !u.Online() {
		return domain.User{}, false
	}
	if ch, _, ok := o.store.Channel(job.ChannelID); ok && !ch.AcceptsText() {
		return domain.User{}, false
	}
	return u, true
}

func (o *Orchestrator) generate(ctx context.Context, req generation.Request) (resp generation.Response, err error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("orchestrator.generate: generator panicked: %v", r)
		}
	}()

	resp, err = o.gen.Generate(ctx, req)
	if err != nil {
		return generation.Response{}, generation.FromContext("", err)
	}
	if o.cfg.Timeout > 0 && ctx.Err() != nil {
		return generation.Response{}, generation.FromContext("", ctx.Err())
	}
	return resp, nil
}

func (o *Orchestrator) waitTyping(ctx context.Context, start time.Time) {
	remaining := o.cfg.MinTyping - time.Since(start)
	if remaining <= 0 {
		return
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) displayName(userID string) string {
	if u, ok := o.store.User(userID); ok && u.Username != "" {
		return u.Username
	}
	return "User"
}
