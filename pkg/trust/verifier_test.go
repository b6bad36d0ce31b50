package trust

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
)

type fakeEvidence struct {
	confidence     map[string]domain.EvidenceConfidence
	contradictions []domain.Contradiction
	confErr        error
	contrErr       error
	confCalls      int
}

func (f *fakeEvidence) CalculateClaimConfidence(_ context.Context, claimID string) (domain.EvidenceConfidence, error) {
	f.confCalls++
	if f.confErr != nil {
		return domain.EvidenceConfidence{}, f.confErr
	}
	return f.confidence[claimID], nil
}

func (f *fakeEvidence) FindContradictions(context.Context) ([]domain.Contradiction, error) {
	if f.contrErr != nil {
		return nil, f.contrErr
	}
	return f.contradictions, nil
}

type fakePolicy struct {
	levels map[string]domain.TrustLevel
	err    error
	calls  int
}

func (f *fakePolicy) GetDomainTrustLevel(_ context.Context, domainName string) (domain.TrustLevel, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.levels[domainName], nil
}

type fakeNotifier struct {
	sent    []domain.BlockedDomainNotification
	failFor map[string]error
}

func (f *fakeNotifier) NotifyDomainBlocked(_ context.Context, n domain.BlockedDomainNotification) error {
	if err := f.failFor[n.Domain]; err != nil {
		return err
	}
	f.sent = append(f.sent, n)
	return nil
}

func newTestVerifier(ev *fakeEvidence, pol *fakePolicy, not *fakeNotifier) *Verifier {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var policy PolicyStore
	if pol != nil {
		policy = pol
	}
	return NewVerifier(NewStore(), ev, policy, not, VerifierConfig{}, logger, nil, nil)
}

func TestVerifyClaimWellSupportedPromotes(t *testing.T) {
	ev := &fakeEvidence{confidence: map[string]domain.EvidenceConfidence{
		"c1": {IndependentSources: 2, SupportingCount: 3},
	}}
	v := newTestVerifier(ev, nil, &fakeNotifier{})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c1", Domain: "example.org"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusVerified, res.Status)
	assert.Equal(t, domain.ReasonWellSupported, res.Reason)
	assert.Equal(t, domain.TrustUnverified, res.OriginalTrustLevel)
	assert.Equal(t, domain.TrustLow, res.NewTrustLevel)
	assert.Equal(t, domain.PromotionPromoted, res.Promotion)
	assert.Equal(t, 2, res.Details.IndependentSources)
}

func TestVerifyClaimInsufficientEvidencePends(t *testing.T) {
	ev := &fakeEvidence{confidence: map[string]domain.EvidenceConfidence{
		"c1": {IndependentSources: 1, SupportingCount: 1},
	}}
	v := newTestVerifier(ev, nil, &fakeNotifier{})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c1", Domain: "example.org"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, res.Status)
	assert.Equal(t, domain.ReasonInsufficientEvidence, res.Reason)
	assert.Equal(t, domain.TrustUnverified, res.NewTrustLevel)
	assert.Equal(t, domain.PromotionUnchanged, res.Promotion)

	snap, _ := v.Store().Snapshot("example.org")
	assert.Equal(t, []string{"c1"}, snap.PendingClaims)
}

func TestVerifyClaimContradictionNeverDemotes(t *testing.T) {
	ev := &fakeEvidence{
		confidence: map[string]domain.EvidenceConfidence{
			"c1": {IndependentSources: 5, SupportingCount: 5},
		},
		contradictions: []domain.Contradiction{
			{Claim1ID: "c1", Claim2ID: "other"},
			{Claim1ID: "x", Claim2ID: "y"},
		},
	}
	v := newTestVerifier(ev, nil, &fakeNotifier{})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c1", Domain: "example.org"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, res.Status)
	assert.Equal(t, domain.ReasonConflictingEvidence, res.Reason)
	assert.Equal(t, domain.PromotionUnchanged, res.Promotion)
	assert.Equal(t, []string{"other"}, res.Details.ContradictingClaims, "only pairs involving the claim count")
}

func TestVerifyClaimRefutingEvidencePends(t *testing.T) {
	ev := &fakeEvidence{confidence: map[string]domain.EvidenceConfidence{
		"c1": {IndependentSources: 3, SupportingCount: 2, RefutingCount: 1},
	}}
	v := newTestVerifier(ev, nil, &fakeNotifier{})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c1", Domain: "example.org"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, res.Status)
	assert.Equal(t, domain.ReasonConflictingEvidence, res.Reason)
}

func TestVerifyClaimDangerousPatternBlocks(t *testing.T) {
	ev := &fakeEvidence{}
	not := &fakeNotifier{}
	v := newTestVerifier(ev, nil, not)

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{
		ClaimID: "c1", Domain: "evil.example", TaskID: "t1", HasDangerousPattern: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, res.Status)
	assert.Equal(t, domain.ReasonDangerousPattern, res.Reason)
	assert.Equal(t, domain.TrustBlocked, res.NewTrustLevel)
	assert.Equal(t, domain.PromotionDemoted, res.Promotion)
	assert.Zero(t, ev.confCalls, "no evidence query for dangerous claims")

	// A later clean claim from the same domain short-circuits.
	res, err = v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c2", Domain: "evil.example"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Status)
	assert.Equal(t, domain.ReasonAlreadyBlocked, res.Reason)
	assert.Zero(t, ev.confCalls)

	// Repeated blocks collapse to one queued notification.
	outcomes := v.SendPendingNotifications(context.Background())
	require.Len(t, outcomes, 1)
	assert.Equal(t, "evil.example", outcomes[0].Notification.Domain)
	assert.Equal(t, "t1", outcomes[0].Notification.TaskID)
	assert.NoError(t, outcomes[0].Err)
	require.Len(t, not.sent, 1)
}

func TestVerifyClaimEvidenceErrorPropagates(t *testing.T) {
	boom := errors.New("graph unavailable")
	v := newTestVerifier(&fakeEvidence{confErr: boom}, nil, &fakeNotifier{})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c1", Domain: "example.org"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	assert.ErrorIs(t, err, boom)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "EVIDENCE_UNAVAILABLE", derr.Code)
	assert.Equal(t, "c1", derr.Details["claim_id"])
	assert.Equal(t, "example.org", derr.Details["domain"])

	v = newTestVerifier(&fakeEvidence{contrErr: boom}, nil, &fakeNotifier{})
	_, err = v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c1", Domain: "example.org"})
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "EVIDENCE_UNAVAILABLE", derr.Code)
}

func TestVerifyClaimPolicyBlockedRejectsBeforeEvidence(t *testing.T) {
	ev := &fakeEvidence{}
	pol := &fakePolicy{levels: map[string]domain.TrustLevel{
		"banned.example": domain.TrustBlocked,
	}}
	v := newTestVerifier(ev, pol, &fakeNotifier{})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c1", Domain: "banned.example"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, res.Status)
	assert.Equal(t, domain.ReasonAlreadyBlocked, res.Reason)
	assert.Equal(t, domain.TrustBlocked, res.NewTrustLevel)
	assert.Zero(t, ev.confCalls, "no evidence query for a policy-blocked domain")
	assert.True(t, v.Store().IsBlocked("banned.example"))

	// An externally imposed block raises no notification of its own.
	assert.Nil(t, v.SendPendingNotifications(context.Background()))

	// Later claims short-circuit on local state without another lookup.
	_, err = v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c2", Domain: "banned.example"})
	require.NoError(t, err)
	assert.Equal(t, 1, pol.calls)
	assert.Zero(t, ev.confCalls)
}

func TestVerifyClaimPolicySeedsInitialLevel(t *testing.T) {
	ev := &fakeEvidence{confidence: map[string]domain.EvidenceConfidence{
		"c1": {IndependentSources: 1},
	}}
	pol := &fakePolicy{levels: map[string]domain.TrustLevel{
		"curated.example": domain.TrustTrusted,
	}}
	v := newTestVerifier(ev, pol, &fakeNotifier{})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c1", Domain: "curated.example"})
	require.NoError(t, err)
	assert.Equal(t, domain.TrustTrusted, res.OriginalTrustLevel)
	assert.Equal(t, domain.TrustTrusted, res.NewTrustLevel)
}

func TestVerifyClaimPolicyFailureDegradesToUnverified(t *testing.T) {
	ev := &fakeEvidence{confidence: map[string]domain.EvidenceConfidence{
		"c1": {IndependentSources: 1},
	}}
	pol := &fakePolicy{err: errors.New("policy db down")}
	v := newTestVerifier(ev, pol, &fakeNotifier{})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c1", Domain: "example.org"})
	require.NoError(t, err, "policy lookup failure is not a verification error")
	assert.Equal(t, domain.TrustUnverified, res.OriginalTrustLevel)
}

func TestVerifyClaimAutoBlocksOnRejectionRate(t *testing.T) {
	ev := &fakeEvidence{confidence: map[string]domain.EvidenceConfidence{
		"c3": {IndependentSources: 1},
	}}
	v := newTestVerifier(ev, nil, &fakeNotifier{})

	// Two rejected claims seeded out of band, as if carried over from
	// earlier sessions of the same process.
	v.Store().Commit("shaky.example", ClaimUpdate{ClaimID: "c1", Bucket: BucketRejected})
	v.Store().Commit("shaky.example", ClaimUpdate{ClaimID: "c2", Bucket: BucketRejected})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c3", Domain: "shaky.example", TaskID: "t9"})
	require.NoError(t, err)

	assert.True(t, v.Store().IsBlocked("shaky.example"))
	assert.Equal(t, domain.TrustBlocked, res.NewTrustLevel)
	assert.Equal(t, domain.PromotionDemoted, res.Promotion)
	assert.Equal(t, domain.ReasonHighRejectionRate, res.Reason)

	outcomes := v.SendPendingNotifications(context.Background())
	require.Len(t, outcomes, 1)
	assert.Equal(t, domain.ReasonHighRejectionRate, outcomes[0].Notification.Reason)
	assert.Equal(t, "t9", outcomes[0].Notification.TaskID)
}

func TestVerifyClaimTrustedNeverAutoBlocks(t *testing.T) {
	ev := &fakeEvidence{confidence: map[string]domain.EvidenceConfidence{
		"c3": {IndependentSources: 1},
	}}
	v := newTestVerifier(ev, nil, &fakeNotifier{})

	v.Store().Commit("solid.example", ClaimUpdate{
		ClaimID: "c1", Bucket: BucketRejected, InitialLevel: domain.TrustTrusted,
	})
	v.Store().Commit("solid.example", ClaimUpdate{ClaimID: "c2", Bucket: BucketRejected})

	res, err := v.VerifyClaim(context.Background(), VerifyRequest{ClaimID: "c3", Domain: "solid.example"})
	require.NoError(t, err)

	assert.False(t, v.Store().IsBlocked("solid.example"))
	assert.Equal(t, domain.TrustTrusted, res.NewTrustLevel)
	assert.Nil(t, v.SendPendingNotifications(context.Background()))
}

func TestSendPendingNotificationsPartialFailure(t *testing.T) {
	not := &fakeNotifier{failFor: map[string]error{"b.example": errors.New("scheduler offline")}}
	v := newTestVerifier(&fakeEvidence{}, nil, not)

	for _, d := range []string{"a.example", "b.example", "c.example"} {
		v.Store().Commit(d, ClaimUpdate{
			ClaimID: "c1", Bucket: BucketRejected,
			ForceBlock: true, BlockReason: domain.ReasonDangerousPattern,
		})
	}

	outcomes := v.SendPendingNotifications(context.Background())
	require.Len(t, outcomes, 3)
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			assert.Equal(t, "b.example", o.Notification.Domain)
			assert.ErrorIs(t, o.Err, domain.ErrNotificationFailed)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Len(t, not.sent, 2, "siblings of a failed delivery still go out")

	// Failed deliveries are not re-queued.
	assert.Nil(t, v.SendPendingNotifications(context.Background()))
}

func TestSendPendingNotificationsEmptyQueue(t *testing.T) {
	v := newTestVerifier(&fakeEvidence{}, nil, &fakeNotifier{})
	assert.Nil(t, v.SendPendingNotifications(context.Background()))
}
