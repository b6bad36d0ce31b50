package domain

import "time"

// TrustLevel is the per-domain reputation tier.
type TrustLevel string

const (
	// TrustUnverified is the initial tier for domains never seen before.
	TrustUnverified TrustLevel = "unverified"
	// TrustLow is reached when at least one claim from the domain is well supported.
	TrustLow TrustLevel = "low"
	// TrustTrusted is assigned externally (curated allowlists); the verifier
	// never promotes a domain this far on its own.
	TrustTrusted TrustLevel = "trusted"
	// TrustBlocked is terminal until an explicit external unblock.
	TrustBlocked TrustLevel = "blocked"
)

// VerificationStatus describes the outcome of a single claim verification.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusRejected VerificationStatus = "rejected"
)

// PromotionResult records how a verification moved the domain's trust level.
type PromotionResult string

const (
	PromotionPromoted  PromotionResult = "promoted"
	PromotionDemoted   PromotionResult = "demoted"
	PromotionUnchanged PromotionResult = "unchanged"
)

// ReasonCode explains a verification or blocking decision.
type ReasonCode string

const (
	ReasonAlreadyBlocked       ReasonCode = "ALREADY_BLOCKED"
	ReasonDangerousPattern     ReasonCode = "DANGEROUS_PATTERN"
	ReasonConflictingEvidence  ReasonCode = "CONFLICTING_EVIDENCE"
	ReasonWellSupported        ReasonCode = "WELL_SUPPORTED"
	ReasonInsufficientEvidence ReasonCode = "INSUFFICIENT_EVIDENCE"
	ReasonHighRejectionRate    ReasonCode = "HIGH_REJECTION_RATE"
)

// EvidenceConfidence is the output contract of the external evidence graph
// for a single claim. The statistical computation behind it is out of scope;
// only these aggregates are consumed.
type EvidenceConfidence struct {
	IndependentSources int `json:"independent_sources"`
	SupportingCount    int `json:"supporting_count"`
	RefutingCount      int `json:"refuting_count"`
	NeutralCount       int `json:"neutral_count"`
}

// Contradiction is a pair of claims the evidence graph found to conflict.
type Contradiction struct {
	Claim1ID string `json:"claim1_id"`
	Claim2ID string `json:"claim2_id"`
}

// VerificationDetails carries the evidence aggregates behind a decision.
type VerificationDetails struct {
	IndependentSources  int      `json:"independent_sources"`
	SupportingCount     int      `json:"supporting_count"`
	RefutingCount       int      `json:"refuting_count"`
	NeutralCount        int      `json:"neutral_count"`
	ContradictingClaims []string `json:"contradicting_claims,omitempty"`
}

// VerificationResult is the outward-facing outcome of verifying one claim.
type VerificationResult struct {
	ClaimID            string              `json:"claim_id"`
	Domain             string              `json:"domain"`
	OriginalTrustLevel TrustLevel          `json:"original_trust_level"`
	NewTrustLevel      TrustLevel          `json:"new_trust_level"`
	Status             VerificationStatus  `json:"verification_status"`
	Promotion          PromotionResult     `json:"promotion_result"`
	Reason             ReasonCode          `json:"reason"`
	Details            VerificationDetails `json:"details"`
}

// BlockedDomainNotification tells the crawler/scheduler to stop fetching a
// domain. Deduplicated per domain while queued; delivered at most once.
type BlockedDomainNotification struct {
	Domain string     `json:"domain"`
	Reason ReasonCode `json:"reason"`
	TaskID string     `json:"task_id"`
}

// DomainSnapshot is a read-only copy of a domain's verification state,
// used for inspection and tests. Claim sets are copies, safe to retain.
type DomainSnapshot struct {
	Domain                 string
	TrustLevel             TrustLevel
	VerifiedClaims         []string
	SecurityRejectedClaims []string
	PendingClaims          []string
	LastUpdated            time.Time
}
