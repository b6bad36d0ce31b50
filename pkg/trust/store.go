package trust

import (
	"sync"
	"time"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
)

// Bucket identifies which claim set a claim currently belongs to. A claim id
// belongs to exactly one bucket at a time.
type Bucket int

const (
	BucketPending Bucket = iota
	BucketVerified
	BucketRejected
)

// domainState is the mutable per-domain record. Guarded by Store.mu.
type domainState struct {
	trustLevel  domain.TrustLevel
	verified    map[string]struct{}
	rejected    map[string]struct{}
	pending     map[string]struct{}
	lastUpdated time.Time
}

func newDomainState(level domain.TrustLevel) *domainState {
	return &domainState{
		trustLevel: level,
		verified:   make(map[string]struct{}),
		rejected:   make(map[string]struct{}),
		pending:    make(map[string]struct{}),
	}
}

// Store holds per-domain claim buckets, the session-scoped blocked set, and
// the pending notification queue. All mutation happens inside a single
// critical section per call, so a claim is never observed in two buckets
// simultaneously even under concurrent verification of the same id.
type Store struct {
	mu            sync.Mutex
	domains       map[string]*domainState
	pendingNotifs []domain.BlockedDomainNotification
	queued        map[string]struct{}
	now           func() time.Time
}

// NewStore creates an empty Store. State lives for the process lifetime;
// Reset exists for tests and explicit teardown.
func NewStore() *Store {
	return &Store{
		domains: make(map[string]*domainState),
		queued:  make(map[string]struct{}),
		now:     time.Now,
	}
}

// ClaimUpdate describes one atomic bucket-reassignment plus the blocking
// decisions that must land in the same critical section.
type ClaimUpdate struct {
	ClaimID string
	Bucket  Bucket
	// InitialLevel seeds the domain state when it is created lazily by this
	// update. Ignored for known domains.
	InitialLevel domain.TrustLevel
	// Promote raises UNVERIFIED to LOW. Levels at or above LOW are left
	// unchanged; this mechanism promotes no further.
	Promote bool
	// ForceBlock transitions the domain to BLOCKED unconditionally.
	ForceBlock  bool
	BlockReason domain.ReasonCode
	// AutoBlockThreshold enables the aggregate rejection-rate check when
	// positive. It never applies to TRUSTED or BLOCKED domains.
	AutoBlockThreshold float64
	TaskID             string
}

// CommitResult reports the trust-level movement produced by a Commit.
type CommitResult struct {
	Original    domain.TrustLevel
	Current     domain.TrustLevel
	Promotion   domain.PromotionResult
	AutoBlocked bool
}

// Commit applies a ClaimUpdate as one atomic critical section: the claim is
// removed from any prior bucket, inserted into exactly one new bucket, and
// any forced or rate-triggered block (including its deduplicated
// notification) lands before the lock is released. Idempotent with respect
// to bucket membership.
func (s *Store) Commit(domainName string, up ClaimUpdate) CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.ensureLocked(domainName, up.InitialLevel)
	res := CommitResult{Original: ds.trustLevel, Promotion: domain.PromotionUnchanged}

	delete(ds.verified, up.ClaimID)
	delete(ds.rejected, up.ClaimID)
	delete(ds.pending, up.ClaimID)
	switch up.Bucket {
	case BucketVerified:
		ds.verified[up.ClaimID] = struct{}{}
	case BucketRejected:
		ds.rejected[up.ClaimID] = struct{}{}
	default:
		ds.pending[up.ClaimID] = struct{}{}
	}
	ds.lastUpdated = s.now()

	switch {
	case up.ForceBlock:
		s.blockLocked(domainName, ds, up.BlockReason, up.TaskID)
		res.Promotion = domain.PromotionDemoted

	default:
		if up.Promote && ds.trustLevel == domain.TrustUnverified {
			ds.trustLevel = domain.TrustLow
			res.Promotion = domain.PromotionPromoted
		}
		if up.AutoBlockThreshold > 0 && rateBlockable(ds.trustLevel) {
			total := len(ds.verified) + len(ds.rejected) + len(ds.pending)
			if total > 0 && float64(len(ds.rejected))/float64(total) > up.AutoBlockThreshold {
				s.blockLocked(domainName, ds, domain.ReasonHighRejectionRate, up.TaskID)
				res.Promotion = domain.PromotionDemoted
				res.AutoBlocked = true
			}
		}
	}

	res.Current = ds.trustLevel
	return res
}

// TrustLevelOf reports the session-scoped trust level for a domain, if any
// state exists for it.
func (s *Store) TrustLevelOf(domainName string) (domain.TrustLevel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.domains[domainName]
	if !ok {
		return "", false
	}
	return ds.trustLevel, true
}

// IsBlocked reports whether the domain sits in the session blocked set.
func (s *Store) IsBlocked(domainName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.domains[domainName]
	return ok && ds.trustLevel == domain.TrustBlocked
}

// Unblock is the explicit external escape hatch from the terminal BLOCKED
// state. The domain drops back to UNVERIFIED; claim buckets are retained.
func (s *Store) Unblock(domainName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.domains[domainName]
	if !ok || ds.trustLevel != domain.TrustBlocked {
		return false
	}
	ds.trustLevel = domain.TrustUnverified
	ds.lastUpdated = s.now()
	return true
}

// DrainNotifications snapshots and clears the pending queue in one critical
// section. Notifications enqueued after the snapshot start a fresh batch, so
// a concurrent drain loses nothing and duplicates nothing.
func (s *Store) DrainNotifications() []domain.BlockedDomainNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pendingNotifs) == 0 {
		return nil
	}
	batch := s.pendingNotifs
	s.pendingNotifs = nil
	s.queued = make(map[string]struct{})
	return batch
}

// Snapshot returns a deep copy of the domain's state for inspection.
func (s *Store) Snapshot(domainName string) (domain.DomainSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.domains[domainName]
	if !ok {
		return domain.DomainSnapshot{}, false
	}
	return domain.DomainSnapshot{
		Domain:                 domainName,
		TrustLevel:             ds.trustLevel,
		VerifiedClaims:         keys(ds.verified),
		SecurityRejectedClaims: keys(ds.rejected),
		PendingClaims:          keys(ds.pending),
		LastUpdated:            ds.lastUpdated,
	}, true
}

// Reset discards all domain state and queued notifications. Test/teardown
// entry point mirroring process restart.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains = make(map[string]*domainState)
	s.pendingNotifs = nil
	s.queued = make(map[string]struct{})
}

func (s *Store) ensureLocked(domainName string, initial domain.TrustLevel) *domainState {
	ds, ok := s.domains[domainName]
	if !ok {
		if initial == "" {
			initial = domain.TrustUnverified
		}
		ds = newDomainState(initial)
		s.domains[domainName] = ds
	}
	return ds
}

func (s *Store) blockLocked(domainName string, ds *domainState, reason domain.ReasonCode, taskID string) {
	ds.trustLevel = domain.TrustBlocked
	if _, dup := s.queued[domainName]; dup {
		return
	}
	s.queued[domainName] = struct{}{}
	s.pendingNotifs = append(s.pendingNotifs, domain.BlockedDomainNotification{
		Domain: domainName,
		Reason: reason,
		TaskID: taskID,
	})
}

func rateBlockable(level domain.TrustLevel) bool {
	return level == domain.TrustUnverified || level == domain.TrustLow
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
