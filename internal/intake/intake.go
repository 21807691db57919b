// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package intake accepts alerts submitted by registered publishers.
//
// A submission is checked in a fixed order: the API key must resolve to an
// active publisher (UNAUTHENTICATED), the publisher must be within its rate
// limit (RATE_LIMITED), the channel must be one it is permitted to publish
// into (FORBIDDEN_CHANNEL), and the payload must pass field validation
// (VALIDATION_FAILED). Accepted submissions go through the same dedup and
// build path as ingested items, tagged as agent-submitted.
//
// A rejected submission leaves the publisher record untouched unless a
// rejection penalty is configured.
//
// The package also owns the publisher lifecycle: registration, status
// changes, slashing, stake withdrawal, reputation and revenue share.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/dedup"
	"github.com/tomtom215/newswire/internal/ingest"
	"github.com/tomtom215/newswire/internal/logging"
	"github.com/tomtom215/newswire/internal/metrics"
	"github.com/tomtom215/newswire/internal/models"
	"github.com/tomtom215/newswire/internal/store"
	"github.com/tomtom215/newswire/internal/validation"
)

// Admitter runs a draft through dedup and build.
type Admitter interface {
	Admit(ctx context.Context, d ingest.Draft) (*models.Alert, error)
}

// PublishAlertRequest is the body of a publisher submission.
type PublishAlertRequest struct {
	Channel     string   `json:"channel" validate:"required"`
	Headline    string   `json:"headline" validate:"required,min=10,max=200"`
	Summary     string   `json:"summary" validate:"required,min=20,max=1000"`
	SourceURL   string   `json:"sourceUrl" validate:"required,http_url"`
	Entities    []string `json:"entities,omitempty" validate:"omitempty,max=16,dive,min=1,max=64"`
	Tickers     []string `json:"tickers,omitempty" validate:"omitempty,max=16,dive,symbol"`
	Tokens      []string `json:"tokens,omitempty" validate:"omitempty,max=16,dive,symbol"`
	Priority    string   `json:"priority,omitempty" validate:"omitempty,priority"`
	Sentiment   string   `json:"sentiment,omitempty" validate:"omitempty,oneof=bullish bearish neutral mixed"`
	ImpactScore *float64 `json:"impactScore,omitempty" validate:"omitempty,gte=0,lte=10"`
}

// RegisterRequest is the body of a publisher registration.
type RegisterRequest struct {
	Name        string        `json:"name" validate:"required,min=3,max=64"`
	Channels    []string      `json:"channels" validate:"channels"`
	Stake       models.Amount `json:"stake"`
	MetadataURI string        `json:"metadataUri,omitempty" validate:"omitempty,max=200"`
}

// Registration is the result of Register. APIKey is shown exactly once.
type Registration struct {
	Publisher *models.Publisher `json:"publisher"`
	APIKey    string            `json:"apiKey"`
}

// Service implements publisher intake.
type Service struct {
	cfg        config.IntakeConfig
	minStake   models.Amount
	publishers store.PublisherStore
	alerts     store.AlertStore
	admit      Admitter
	limiter    *publisherLimiter
	bcryptCost int
	newID      func() string
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// New creates the intake service.
func New(cfg *config.IntakeConfig, publishers store.PublisherStore, alerts store.AlertStore, admit Admitter, opts ...Option) (*Service, error) {
	minStake, err := models.ParseAmount(cfg.MinStake)
	if err != nil {
		return nil, fmt.Errorf("intake min stake: %w", err)
	}
	s := &Service{
		cfg:        *cfg,
		minStake:   minStake,
		publishers: publishers,
		alerts:     alerts,
		admit:      admit,
		limiter:    newPublisherLimiter(cfg.RatePerSecond, cfg.RateBurst),
		bcryptCost: bcrypt.DefaultCost,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Authenticate resolves an API key to an active publisher.
func (s *Service) Authenticate(ctx context.Context, key string) (*models.Publisher, error) {
	p, err := s.resolveKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if !p.CanPublish() {
		logging.Audit(logging.AuditEvent{
			Event:  "publisher.authenticate",
			Actor:  p.ID,
			Role:   "publisher",
			Reason: "status " + string(p.Status),
		})
		return nil, newError(CodeUnauthenticated, "publisher is %s", p.Status)
	}
	return p, nil
}

// resolveKey finds the publisher owning key, whatever its status.
func (s *Service) resolveKey(ctx context.Context, key string) (*models.Publisher, error) {
	lookup, ok := lookupPrefix(s.cfg.KeyPrefix, key)
	if !ok {
		return nil, newError(CodeUnauthenticated, "invalid API key")
	}
	candidates, err := s.publishers.PublishersByPrefix(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("publisher lookup: %w", err)
	}
	for _, p := range candidates {
		if verifyKey(key, p.CredentialHash) {
			return p, nil
		}
	}
	return nil, newError(CodeUnauthenticated, "invalid API key")
}

// Publish validates and admits a publisher submission. A duplicate of an
// existing alert returns store.ErrDuplicate. alertsPublished counts admitted
// alerts only, so rejections and duplicates leave it unchanged.
func (s *Service) Publish(ctx context.Context, key string, req PublishAlertRequest) (*models.Alert, error) {
	pub, err := s.Authenticate(ctx, key)
	if err != nil {
		return nil, s.reject(err)
	}
	if !s.limiter.allow(pub.ID) {
		return nil, s.reject(newError(CodeRateLimited, "publisher %s exceeded %v submissions/s", pub.Name, s.cfg.RatePerSecond))
	}

	ch, err := models.ParseChannel(req.Channel)
	if err != nil || !pub.Permits(ch) {
		s.penalize(ctx, pub.ID)
		return nil, s.reject(&Error{
			Code:    CodeForbiddenChannel,
			Message: fmt.Sprintf("publisher %s may not publish to %q", pub.Name, req.Channel),
			Details: map[string]interface{}{"allowed": pub.Channels.Strings()},
		})
	}

	normalize(&req)
	if verr := validation.ValidateStruct(&req); verr != nil {
		s.penalize(ctx, pub.ID)
		return nil, s.reject(&Error{Code: CodeValidationFailed, Message: verr.Error(), Details: verr.Details()})
	}

	priority, _ := models.ParsePriority(req.Priority)
	alert, err := s.admit.Admit(ctx, ingest.Draft{
		Channel:       ch,
		Priority:      priority,
		Sentiment:     models.Sentiment(req.Sentiment),
		ImpactScore:   req.ImpactScore,
		Headline:      req.Headline,
		Summary:       req.Summary,
		Entities:      req.Entities,
		Tickers:       req.Tickers,
		Tokens:        req.Tokens,
		SourceURL:     req.SourceURL,
		SourceType:    models.SourceTypeAgent,
		PublisherID:   pub.ID,
		PublisherName: pub.Name,
		Source:        "publisher:" + pub.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.publishers.IncrementAlertsPublished(ctx, pub.ID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("publisher_id", pub.ID).Msg("Failed to count published alert")
	}
	logging.Ctx(ctx).Info().
		Str("publisher_id", pub.ID).
		Str("alert_id", alert.AlertID).
		Str("channel", string(alert.Channel)).
		Msg("Publisher alert accepted")
	return alert, nil
}

func (s *Service) reject(err error) error {
	if code := CodeOf(err); code != "" {
		metrics.RecordIntakeRejection(string(code))
	}
	return err
}

// normalize trims text and upper-cases symbols before validation.
func normalize(req *PublishAlertRequest) {
	req.Headline = strings.TrimSpace(req.Headline)
	req.Summary = strings.TrimSpace(req.Summary)
	req.SourceURL = strings.TrimSpace(req.SourceURL)
	for i := range req.Tickers {
		req.Tickers[i] = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(req.Tickers[i]), "$"))
	}
	for i := range req.Tokens {
		req.Tokens[i] = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(req.Tokens[i]), "$"))
	}
	req.Priority = strings.ToLower(strings.TrimSpace(req.Priority))
	req.Sentiment = strings.ToLower(strings.TrimSpace(req.Sentiment))
}

// penalize lowers the publisher's reputation after a rejected submission and
// suspends it below the configured threshold. It is a no-op unless
// intake.rejection_penalty is set.
func (s *Service) penalize(ctx context.Context, id string) {
	if s.cfg.RejectionPenalty <= 0 {
		return
	}
	var suspended bool
	_, err := s.publishers.UpdatePublisher(ctx, id, func(p *models.Publisher) error {
		p.Reputation = models.ClampReputation(p.Reputation - s.cfg.RejectionPenalty)
		if p.Status == models.PublisherActive && p.Reputation < s.cfg.SuspendThreshold {
			p.Status = models.PublisherSuspended
			suspended = true
		}
		return nil
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("publisher_id", id).Msg("Failed to apply reputation penalty")
		return
	}
	if suspended {
		logging.Audit(logging.AuditEvent{
			Event:   "publisher.auto_suspend",
			Target:  id,
			Success: true,
			Reason:  "reputation below threshold",
		})
	}
}

// Register creates a publisher and returns its API key.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.MetadataURI = strings.TrimSpace(req.MetadataURI)
	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, &Error{Code: CodeValidationFailed, Message: verr.Error(), Details: verr.Details()}
	}
	if req.Stake < s.minStake {
		return nil, &Error{
			Code:    CodeValidationFailed,
			Message: fmt.Sprintf("stake must be at least %s", s.minStake),
			Details: map[string]interface{}{"stake": "below minimum " + s.minStake.String()},
		}
	}
	channels, err := models.ParseChannelSet(req.Channels)
	if err != nil {
		return nil, newError(CodeValidationFailed, "%v", err)
	}

	key, lookup, hash, err := generateKey(s.cfg.KeyPrefix, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	status := models.PublisherPending
	if s.cfg.AutoApprove {
		status = models.PublisherActive
	}
	pub := &models.Publisher{
		ID:               s.newID(),
		Name:             req.Name,
		CredentialHash:   hash,
		CredentialPrefix: lookup,
		Channels:         channels,
		Status:           status,
		Reputation:       models.InitialReputation,
		Stake:            req.Stake,
		MetadataURI:      req.MetadataURI,
	}
	if err := s.publishers.CreatePublisher(ctx, pub); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, newError(CodeConflict, "publisher name %q is taken", req.Name)
		}
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	created, err := s.publishers.GetPublisher(ctx, pub.ID)
	if err != nil {
		return nil, fmt.Errorf("reload publisher: %w", err)
	}
	logging.Audit(logging.AuditEvent{
		Event:   "publisher.register",
		Target:  pub.ID,
		Success: true,
		Reason:  "status " + string(status),
	})
	return &Registration{Publisher: created, APIKey: key}, nil
}

// SetStatus changes a publisher's status. Activating a publisher whose
// reputation sits below the suspend threshold resets it to the initial
// reputation.
func (s *Service) SetStatus(ctx context.Context, id string, status models.PublisherStatus) (*models.Publisher, error) {
	if _, err := models.ParsePublisherStatus(string(status)); err != nil {
		return nil, newError(CodeValidationFailed, "%v", err)
	}
	p, err := s.publishers.UpdatePublisher(ctx, id, func(p *models.Publisher) error {
		if status == models.PublisherActive && p.Reputation < s.cfg.SuspendThreshold {
			p.Reputation = models.InitialReputation
		}
		p.Status = status
		return nil
	})
	if err != nil {
		return nil, notFound(err, id)
	}
	logging.Audit(logging.AuditEvent{
		Event:   "publisher.status",
		Target:  id,
		Role:    "admin",
		Success: true,
		Reason:  string(status),
	})
	return p, nil
}

// Slash removes amount from the publisher's stake and zeroes its
// reputation. The publisher is suspended, or banned once no stake remains.
// Slashing more than the current stake is refused.
func (s *Service) Slash(ctx context.Context, id string, amount models.Amount) (*models.Publisher, error) {
	if amount <= 0 {
		return nil, newError(CodeInvalidAmount, "slash amount must be greater than zero")
	}
	p, err := s.publishers.UpdatePublisher(ctx, id, func(p *models.Publisher) error {
		if amount > p.Stake {
			return &Error{
				Code:    CodeInvalidAmount,
				Message: fmt.Sprintf("slash amount %s exceeds stake %s", amount, p.Stake),
				Details: map[string]interface{}{"stake": p.Stake.String()},
			}
		}
		p.Stake -= amount
		p.Reputation = models.MinReputation
		if p.Stake == 0 {
			p.Status = models.PublisherBanned
		} else if p.Status != models.PublisherBanned {
			p.Status = models.PublisherSuspended
		}
		return nil
	})
	if err != nil {
		return nil, notFound(err, id)
	}
	logging.Audit(logging.AuditEvent{
		Event:   "publisher.slash",
		Target:  id,
		Role:    "admin",
		Success: true,
		Reason:  fmt.Sprintf("slashed %s, status %s", amount, p.Status),
	})
	return p, nil
}

// StakeWithdrawal is the result of WithdrawStake.
type StakeWithdrawal struct {
	Publisher *models.Publisher `json:"publisher"`
	Amount    models.Amount     `json:"amount"`
}

// WithdrawStake returns the whole stake of the publisher owning key and
// suspends it. Banned publishers lost their stake to slashing and are
// refused, as is a publisher with nothing staked.
func (s *Service) WithdrawStake(ctx context.Context, key string) (*StakeWithdrawal, error) {
	pub, err := s.resolveKey(ctx, key)
	if err != nil {
		return nil, err
	}
	var amount models.Amount
	p, err := s.publishers.UpdatePublisher(ctx, pub.ID, func(p *models.Publisher) error {
		if p.Status == models.PublisherBanned {
			return newError(CodeSlashed, "publisher %s has been slashed", p.Name)
		}
		if p.Stake <= 0 {
			return newError(CodeInvalidAmount, "publisher %s has no stake", p.Name)
		}
		amount = p.Stake
		p.Stake = 0
		p.Status = models.PublisherSuspended
		return nil
	})
	if err != nil {
		return nil, notFound(err, pub.ID)
	}
	logging.Audit(logging.AuditEvent{
		Event:   "publisher.withdraw_stake",
		Actor:   pub.ID,
		Role:    "publisher",
		Success: true,
		Reason:  "withdrew " + amount.String(),
	})
	return &StakeWithdrawal{Publisher: p, Amount: amount}, nil
}

// RecordConsumption credits a publisher for one delivery of its alert:
// share is added to earnings, alertsConsumed is incremented, and reputation
// rises by the configured bonus.
func (s *Service) RecordConsumption(ctx context.Context, publisherID string, share models.Amount) error {
	_, err := s.publishers.UpdatePublisher(ctx, publisherID, func(p *models.Publisher) error {
		p.AlertsConsumed++
		p.Earnings += share
		p.Reputation = models.ClampReputation(p.Reputation + s.cfg.ConsumptionBonus)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record consumption for %s: %w", publisherID, err)
	}
	return nil
}

// Publisher returns a publisher record.
func (s *Service) Publisher(ctx context.Context, id string) (*models.Publisher, error) {
	p, err := s.publishers.GetPublisher(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return p, nil
}

// VerifyAlert reports whether hash matches the stored alert's content hash.
func (s *Service) VerifyAlert(ctx context.Context, alertID, hash string) (bool, error) {
	a, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, newError(CodeNotFound, "alert %s not found", alertID)
		}
		return false, err
	}
	return dedup.VerifyContent(a, hash), nil
}

// Serve implements suture.Service, pruning idle rate-limit buckets.
func (s *Service) Serve(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.limiter.prune(time.Hour); n > 0 {
				logging.Debug().Int("removed", n).Msg("Pruned idle publisher rate limiters")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Service) String() string { return "publisher-intake" }

func notFound(err error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(CodeNotFound, "publisher %s not found", id)
	}
	return err
}
