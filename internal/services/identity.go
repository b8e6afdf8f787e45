package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	redisclient "github.com/yungbote/identity-backend/internal/clients/redis"
	"github.com/yungbote/identity-backend/internal/data/aggregates"
	"github.com/yungbote/identity-backend/internal/data/repos"
	types "github.com/yungbote/identity-backend/internal/domain"
	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/observability"
	"github.com/yungbote/identity-backend/internal/platform/ctxutil"
	"github.com/yungbote/identity-backend/internal/platform/dbctx"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

type IdentityService interface {
	Identify(ctx context.Context, req IdentifyRequest) (domainagg.IdentifyResult, error)
	GetIdentity(ctx context.Context, contactID int64) (domainagg.IdentitySummary, error)
	ListLinkEvents(ctx context.Context, contactID int64) ([]*types.ContactLinkEvent, error)
	CheckIntegrity(ctx context.Context) (domainagg.IntegrityReport, error)
}

type IdentifyRequest struct {
	Email       *string
	PhoneNumber *string
}

// RetryPolicy bounds how often a conflicting reconciliation is re-run.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Backoff <= 0 {
		p.Backoff = 25 * time.Millisecond
	}
	return p
}

// delay is exponential in attempt with up to 50% jitter.
func (p RetryPolicy) delay(attempt int) time.Duration {
	base := p.Backoff << (attempt - 1)
	return base + time.Duration(rand.Int64N(int64(base)/2+1))
}

type identityService struct {
	log       *logger.Logger
	aggregate domainagg.IdentityAggregate
	events    repos.LinkEventRepo
	integrity *aggregates.IntegrityChecker
	locker    redisclient.Locker
	metrics   *observability.Metrics
	retry     RetryPolicy
}

func NewIdentityService(
	log *logger.Logger,
	aggregate domainagg.IdentityAggregate,
	events repos.LinkEventRepo,
	integrity *aggregates.IntegrityChecker,
	locker redisclient.Locker,
	metrics *observability.Metrics,
	retry RetryPolicy,
) IdentityService {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	return &identityService{
		log:       log.With("service", "IdentityService"),
		aggregate: aggregate,
		events:    events,
		integrity: integrity,
		locker:    locker,
		metrics:   metrics,
		retry:     retry.withDefaults(),
	}
}

func (s *identityService) Identify(ctx context.Context, req IdentifyRequest) (domainagg.IdentifyResult, error) {
	const op = "IdentityService.Identify"
	var out domainagg.IdentifyResult

	email := presentValue(req.Email)
	phone := presentValue(req.PhoneNumber)
	if email == nil && phone == nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "email or phoneNumber is required", nil)
	}
	requestID := ctxutil.RequestID(ctx)
	log := s.log.Ctx(ctx)

	release, err := s.lock(ctx, deref(email), deref(phone))
	if err != nil {
		return out, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("observation lock release failed", "error", err)
		}
	}()

	in := domainagg.IdentifyInput{Email: email, PhoneNumber: phone, RequestID: requestID}
	attempt := 1
	for ; ; attempt++ {
		out, err = s.aggregate.Identify(ctx, in)
		if err == nil || !domainagg.IsRetryable(err) || attempt >= s.retry.MaxAttempts {
			break
		}
		wait := s.retry.delay(attempt)
		log.Debug("identify retrying", "attempt", attempt, "wait", wait.String(), "error", err)
		select {
		case <-ctx.Done():
			return out, domainagg.Wrap(domainagg.CodeRetryable, op, ctx.Err())
		case <-time.After(wait):
		}
	}
	s.metrics.ObserveIdentifyAttempts(attempt)

	if err != nil {
		log.Warn("identify failed",
			"email", deref(email),
			"phone", deref(phone),
			"attempts", attempt,
			"code", string(domainagg.CodeOf(err)),
			"error", err,
		)
		return out, err
	}
	log.Info("identify",
		"email", deref(email),
		"phone", deref(phone),
		"primary_id", out.PrimaryID,
		"created_contact_id", out.CreatedContactID,
		"demoted", len(out.DemotedIDs),
		"attempts", attempt,
	)
	return out, nil
}

func (s *identityService) GetIdentity(ctx context.Context, contactID int64) (domainagg.IdentitySummary, error) {
	return s.aggregate.GetIdentity(ctx, contactID)
}

// ListLinkEvents returns the audit trail of the cluster contactID belongs to.
func (s *identityService) ListLinkEvents(ctx context.Context, contactID int64) ([]*types.ContactLinkEvent, error) {
	const op = "IdentityService.ListLinkEvents"
	summary, err := s.aggregate.GetIdentity(ctx, contactID)
	if err != nil {
		return nil, err
	}
	ids := append([]int64{summary.PrimaryContactID}, summary.SecondaryContactIDs...)
	rows, err := s.events.ListByContacts(dbctx.Context{Ctx: ctx}, ids, 0)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return rows, nil
}

func (s *identityService) CheckIntegrity(ctx context.Context) (domainagg.IntegrityReport, error) {
	const op = "IdentityService.CheckIntegrity"
	if s.integrity == nil {
		return domainagg.IntegrityReport{}, domainagg.NewError(domainagg.CodeInternal, op, "integrity checker not configured", nil)
	}
	return s.integrity.Check(ctx)
}

// lock takes the cross-instance observation lock. A lock backend failure is
// logged and the request proceeds on store isolation alone; only a wait
// timeout is reported to the caller.
func (s *identityService) lock(ctx context.Context, email, phone string) (redisclient.ReleaseFunc, error) {
	const op = "IdentityService.Identify"
	noop := func(context.Context) error { return nil }

	start := time.Now()
	release, err := s.locker.Acquire(ctx, redisclient.ObservationKeys(email, phone))
	switch {
	case err == nil:
		s.metrics.ObserveLockWait("acquired", time.Since(start))
		return release, nil
	case errors.Is(err, redisclient.ErrLockTimeout):
		s.metrics.ObserveLockWait("timeout", time.Since(start))
		return noop, domainagg.NewError(domainagg.CodeRetryable, op, "observation is being reconciled by another request", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return noop, domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		s.metrics.ObserveLockWait("error", time.Since(start))
		s.log.Ctx(ctx).Warn("observation lock unavailable, continuing without it", "error", err)
		return noop, nil
	}
}

// presentValue treats nil and blank strings as absent.
func presentValue(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
