package trust

import (
	"context"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
)

// EvidenceSource is the external evidence graph consulted during claim
// verification. Errors from it are propagated uncaught: a wrong silent trust
// decision is worse than a failed call.
type EvidenceSource interface {
	// CalculateClaimConfidence returns the evidence aggregates for one claim.
	CalculateClaimConfidence(ctx context.Context, claimID string) (domain.EvidenceConfidence, error)
	// FindContradictions returns every known conflicting claim pair. The
	// verifier filters the result to the claim under verification.
	FindContradictions(ctx context.Context) ([]domain.Contradiction, error)
}

// PolicyStore is the external persistence layer for domain trust levels.
// The session-scoped Store in this package layers claim buckets and a
// blocked set on top of it.
type PolicyStore interface {
	GetDomainTrustLevel(ctx context.Context, domainName string) (domain.TrustLevel, error)
}

// Notifier delivers blocked-domain notifications to the crawler/scheduler.
// Delivery may fail per call; failures are reported, never retried here.
type Notifier interface {
	NotifyDomainBlocked(ctx context.Context, notification domain.BlockedDomainNotification) error
}
