package trust

import (
	"fmt"
	"time"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
)

// Data quality levels reported in response metadata.
const (
	DataQualityOK       = "ok"
	DataQualityDegraded = "degraded"
)

// MetaBuilder assembles the outward-facing security/trust metadata attached
// to a response. Every add method returns the builder for chaining; Build
// emits only non-empty collections to keep payloads minimal.
type MetaBuilder struct {
	warnings          []string
	blockedDomains    []string
	unverifiedDomains []string
	claims            []domain.ClaimMeta
	dataQuality       string
	seenBlocked       map[string]struct{}
	seenUnverified    map[string]struct{}
	now               func() time.Time
}

// NewMetaBuilder creates an empty builder reporting "ok" data quality.
func NewMetaBuilder() *MetaBuilder {
	return &MetaBuilder{
		dataQuality:    DataQualityOK,
		seenBlocked:    make(map[string]struct{}),
		seenUnverified: make(map[string]struct{}),
		now:            time.Now,
	}
}

// AddWarning appends a human-readable security warning.
func (b *MetaBuilder) AddWarning(warning string) *MetaBuilder {
	if warning != "" {
		b.warnings = append(b.warnings, warning)
	}
	return b
}

// AddBlockedDomain records a blocked domain, deduplicated.
func (b *MetaBuilder) AddBlockedDomain(domainName string) *MetaBuilder {
	if _, ok := b.seenBlocked[domainName]; !ok {
		b.seenBlocked[domainName] = struct{}{}
		b.blockedDomains = append(b.blockedDomains, domainName)
	}
	return b
}

// AddUnverifiedDomain records an unverified domain, deduplicated.
func (b *MetaBuilder) AddUnverifiedDomain(domainName string) *MetaBuilder {
	if _, ok := b.seenUnverified[domainName]; !ok {
		b.seenUnverified[domainName] = struct{}{}
		b.unverifiedDomains = append(b.unverifiedDomains, domainName)
	}
	return b
}

// AddClaim appends one per-claim metadata entry.
func (b *MetaBuilder) AddClaim(claim domain.ClaimMeta) *MetaBuilder {
	b.claims = append(b.claims, claim)
	return b
}

// DataQuality overrides the reported data quality.
func (b *MetaBuilder) DataQuality(quality string) *MetaBuilder {
	b.dataQuality = quality
	return b
}

// Build emits the metadata map: timestamp and data_quality always, every
// collection only when non-empty.
func (b *MetaBuilder) Build() map[string]any {
	meta := map[string]any{
		"timestamp":    b.now().UTC().Format(time.RFC3339),
		"data_quality": b.dataQuality,
	}
	if len(b.warnings) > 0 {
		meta["warnings"] = b.warnings
	}
	if len(b.blockedDomains) > 0 {
		meta["blocked_domains"] = b.blockedDomains
	}
	if len(b.unverifiedDomains) > 0 {
		meta["unverified_domains"] = b.unverifiedDomains
	}
	if len(b.claims) > 0 {
		meta["claims"] = b.claims
	}
	return meta
}

// BuildResponseMeta aggregates per-claim verification results into response
// metadata: deduplicated blocked/unverified domain sets, demotion-derived
// warnings, and degraded data quality when any result was demoted.
func BuildResponseMeta(results []*domain.VerificationResult) map[string]any {
	b := NewMetaBuilder()
	for _, r := range results {
		if r == nil {
			continue
		}
		b.AddClaim(domain.ClaimMeta{
			ClaimID:    r.ClaimID,
			Domain:     r.Domain,
			TrustLevel: r.NewTrustLevel,
			Status:     r.Status,
		})
		switch r.NewTrustLevel {
		case domain.TrustBlocked:
			b.AddBlockedDomain(r.Domain)
		case domain.TrustUnverified:
			b.AddUnverifiedDomain(r.Domain)
		}
		if r.Promotion == domain.PromotionDemoted {
			b.AddWarning(fmt.Sprintf("domain %s was blocked: %s", r.Domain, r.Reason))
			b.DataQuality(DataQualityDegraded)
		}
	}
	return b.Build()
}

// AttachMeta sets the security metadata on the response in place under the
// reserved key and returns the response for chaining.
func AttachMeta(response map[string]any, meta map[string]any) map[string]any {
	if response == nil {
		return response
	}
	response[domain.MetaKey] = meta
	return response
}
