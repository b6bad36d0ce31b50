package trust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
	"github.com/k-shibuki/lyra-sub001/pkg/logging"
	"github.com/k-shibuki/lyra-sub001/pkg/telemetry"
)

// Default thresholds for the verification state machine.
const (
	// DefaultPromotionThreshold is the independent-source count that lets a
	// claim verify and an UNVERIFIED domain reach LOW.
	DefaultPromotionThreshold = 2
	// DefaultRejectionRateThreshold is the rejected/total ratio past which an
	// UNVERIFIED or LOW domain is auto-blocked.
	DefaultRejectionRateThreshold = 0.3
)

// VerifierConfig carries the tunables of the state machine. Zero values fall
// back to the package defaults.
type VerifierConfig struct {
	PromotionThreshold     int
	RejectionRateThreshold float64
}

// VerifyRequest identifies one claim to verify within its domain and task.
type VerifyRequest struct {
	ClaimID string
	Domain  string
	// TaskID travels with any block notification raised by this call.
	TaskID string
	// HasDangerousPattern marks claims whose source text tripped the input
	// sanitizer. It blocks the domain unconditionally.
	HasDangerousPattern bool
}

// NotificationOutcome reports one delivery attempt from a drain batch.
type NotificationOutcome struct {
	Notification domain.BlockedDomainNotification
	Err          error
}

// Verifier is the trust state machine. All shared state lives in the Store;
// the verifier itself is safe for concurrent use.
type Verifier struct {
	store    *Store
	evidence EvidenceSource
	policy   PolicyStore
	notifier Notifier

	promotionThreshold     int
	rejectionRateThreshold float64

	logger  *slog.Logger
	audit   *logging.AuditLogger
	metrics *telemetry.Metrics
}

// NewVerifier wires the state machine to its collaborators. audit and
// metrics may be nil.
func NewVerifier(store *Store, evidence EvidenceSource, policy PolicyStore, notifier Notifier, cfg VerifierConfig, logger *slog.Logger, audit *logging.AuditLogger, metrics *telemetry.Metrics) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PromotionThreshold <= 0 {
		cfg.PromotionThreshold = DefaultPromotionThreshold
	}
	if cfg.RejectionRateThreshold <= 0 {
		cfg.RejectionRateThreshold = DefaultRejectionRateThreshold
	}
	return &Verifier{
		store:                  store,
		evidence:               evidence,
		policy:                 policy,
		notifier:               notifier,
		promotionThreshold:     cfg.PromotionThreshold,
		rejectionRateThreshold: cfg.RejectionRateThreshold,
		logger:                 logger,
		audit:                  audit,
		metrics:                metrics,
	}
}

// VerifyClaim runs one claim through the state machine. Evidence-source
// errors propagate to the caller; every other path returns a result. The
// bucket reassignment and any blocking decision execute as one atomic
// critical section in the store.
func (v *Verifier) VerifyClaim(ctx context.Context, req VerifyRequest) (*domain.VerificationResult, error) {
	start := time.Now()

	// Fail fast for blocked domains: no evidence query, no state change.
	if v.store.IsBlocked(req.Domain) {
		result := &domain.VerificationResult{
			ClaimID:            req.ClaimID,
			Domain:             req.Domain,
			OriginalTrustLevel: domain.TrustBlocked,
			NewTrustLevel:      domain.TrustBlocked,
			Status:             domain.StatusRejected,
			Promotion:          domain.PromotionUnchanged,
			Reason:             domain.ReasonAlreadyBlocked,
		}
		v.finish(ctx, result, start)
		return result, nil
	}

	initial := v.resolveInitialLevel(ctx, req.Domain)

	// A BLOCKED tier from the external policy store counts the same as a
	// local block: reject before touching the evidence source.
	if initial == domain.TrustBlocked {
		commit := v.store.Commit(req.Domain, ClaimUpdate{
			ClaimID:      req.ClaimID,
			Bucket:       BucketRejected,
			InitialLevel: domain.TrustBlocked,
			TaskID:       req.TaskID,
		})
		result := &domain.VerificationResult{
			ClaimID:            req.ClaimID,
			Domain:             req.Domain,
			OriginalTrustLevel: commit.Original,
			NewTrustLevel:      commit.Current,
			Status:             domain.StatusRejected,
			Promotion:          commit.Promotion,
			Reason:             domain.ReasonAlreadyBlocked,
		}
		v.finish(ctx, result, start)
		return result, nil
	}

	if req.HasDangerousPattern {
		commit := v.store.Commit(req.Domain, ClaimUpdate{
			ClaimID:      req.ClaimID,
			Bucket:       BucketRejected,
			InitialLevel: initial,
			ForceBlock:   true,
			BlockReason:  domain.ReasonDangerousPattern,
			TaskID:       req.TaskID,
		})
		result := &domain.VerificationResult{
			ClaimID:            req.ClaimID,
			Domain:             req.Domain,
			OriginalTrustLevel: commit.Original,
			NewTrustLevel:      commit.Current,
			Status:             domain.StatusRejected,
			Promotion:          commit.Promotion,
			Reason:             domain.ReasonDangerousPattern,
		}
		v.recordBlock(ctx, req.Domain, domain.ReasonDangerousPattern)
		v.finish(ctx, result, start)
		return result, nil
	}

	confidence, err := v.evidence.CalculateClaimConfidence(ctx, req.ClaimID)
	if err != nil {
		return nil, v.evidenceError(req, "confidence lookup failed", err)
	}
	contradictions, err := v.evidence.FindContradictions(ctx)
	if err != nil {
		return nil, v.evidenceError(req, "contradiction scan failed", err)
	}

	details := domain.VerificationDetails{
		IndependentSources: confidence.IndependentSources,
		SupportingCount:    confidence.SupportingCount,
		RefutingCount:      confidence.RefutingCount,
		NeutralCount:       confidence.NeutralCount,
	}
	for _, c := range contradictions {
		switch req.ClaimID {
		case c.Claim1ID:
			details.ContradictingClaims = append(details.ContradictingClaims, c.Claim2ID)
		case c.Claim2ID:
			details.ContradictingClaims = append(details.ContradictingClaims, c.Claim1ID)
		}
	}

	var (
		status  domain.VerificationStatus
		reason  domain.ReasonCode
		bucket  Bucket
		promote bool
	)
	switch {
	case len(details.ContradictingClaims) > 0 || confidence.RefutingCount > 0:
		// Disagreement parks the claim; it never demotes trust on its own.
		status, reason, bucket = domain.StatusPending, domain.ReasonConflictingEvidence, BucketPending
	case confidence.IndependentSources >= v.promotionThreshold:
		status, reason, bucket = domain.StatusVerified, domain.ReasonWellSupported, BucketVerified
		promote = true
	default:
		status, reason, bucket = domain.StatusPending, domain.ReasonInsufficientEvidence, BucketPending
	}

	commit := v.store.Commit(req.Domain, ClaimUpdate{
		ClaimID:            req.ClaimID,
		Bucket:             bucket,
		InitialLevel:       initial,
		Promote:            promote,
		AutoBlockThreshold: v.rejectionRateThreshold,
		TaskID:             req.TaskID,
	})
	if commit.AutoBlocked {
		reason = domain.ReasonHighRejectionRate
		v.recordBlock(ctx, req.Domain, domain.ReasonHighRejectionRate)
	}

	result := &domain.VerificationResult{
		ClaimID:            req.ClaimID,
		Domain:             req.Domain,
		OriginalTrustLevel: commit.Original,
		NewTrustLevel:      commit.Current,
		Status:             status,
		Promotion:          commit.Promotion,
		Reason:             reason,
		Details:            details,
	}
	v.finish(ctx, result, start)
	return result, nil
}

// SendPendingNotifications drains the queue with snapshot-then-clear
// semantics and delivers each notification at most once. A per-domain
// failure is captured in its outcome without aborting siblings and without
// re-queuing.
func (v *Verifier) SendPendingNotifications(ctx context.Context) []NotificationOutcome {
	batch := v.store.DrainNotifications()
	if len(batch) == 0 {
		return nil
	}

	outcomes := make([]NotificationOutcome, 0, len(batch))
	for _, n := range batch {
		err := v.notifier.NotifyDomainBlocked(ctx, n)
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", domain.ErrNotificationFailed, n.Domain, err)
			v.logger.Warn("blocked-domain notification failed",
				"domain", n.Domain, "reason", string(n.Reason), "error", err)
			v.metrics.RecordNotification("failed")
		} else {
			v.metrics.RecordNotification("sent")
		}
		outcomes = append(outcomes, NotificationOutcome{Notification: n, Err: err})
	}
	return outcomes
}

// Store exposes the underlying state store, mainly for reset in tests.
func (v *Verifier) Store() *Store { return v.store }

// evidenceError shapes an evidence-source failure for callers: errors.Is
// matches ErrVerificationFailed, and the claim and domain ride along as
// structured details.
func (v *Verifier) evidenceError(req VerifyRequest, msg string, err error) error {
	return &domain.DomainError{
		Err:     fmt.Errorf("%w: %w", domain.ErrVerificationFailed, err),
		Code:    "EVIDENCE_UNAVAILABLE",
		Message: fmt.Sprintf("%s for claim %s", msg, req.ClaimID),
		Details: map[string]any{
			"claim_id": req.ClaimID,
			"domain":   req.Domain,
		},
	}
}

// resolveInitialLevel asks the external policy store for a domain's
// persisted tier. Failures degrade to UNVERIFIED with a warning: only
// evidence-source failures surface as hard errors.
func (v *Verifier) resolveInitialLevel(ctx context.Context, domainName string) domain.TrustLevel {
	if level, ok := v.store.TrustLevelOf(domainName); ok {
		return level
	}
	if v.policy == nil {
		return domain.TrustUnverified
	}
	level, err := v.policy.GetDomainTrustLevel(ctx, domainName)
	if err != nil {
		v.logger.Warn("domain policy lookup failed, treating as unverified",
			"domain", domainName, "error", err)
		return domain.TrustUnverified
	}
	if level == "" {
		return domain.TrustUnverified
	}
	return level
}

func (v *Verifier) recordBlock(ctx context.Context, domainName string, reason domain.ReasonCode) {
	v.metrics.RecordDomainBlocked(string(reason))
	if v.audit != nil {
		v.audit.LogSecurityEvent(ctx, "domain_blocked", domain.SeverityCritical, map[string]any{
			"domain": domainName,
			"reason": string(reason),
		})
	}
}

func (v *Verifier) finish(ctx context.Context, result *domain.VerificationResult, start time.Time) {
	v.metrics.RecordVerification(string(result.Status), time.Since(start))
	telemetry.RecordVerificationSpan(ctx, result)
	v.logger.Debug("claim verified",
		"claim_id", result.ClaimID,
		"domain", result.Domain,
		"status", string(result.Status),
		"reason", string(result.Reason),
		"trust_level", string(result.NewTrustLevel),
	)
}
