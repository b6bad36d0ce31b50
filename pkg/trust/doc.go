// Package trust implements the per-domain trust state machine of the Lancet
// pipeline: claim-bucket bookkeeping, blocking decisions, deduplicated
// block notifications, and the response metadata assembled from verification
// outcomes.
//
// The state machine is UNVERIFIED → LOW → TRUSTED with BLOCKED reachable
// from any state. TRUSTED is only ever assigned externally; this package
// never promotes a domain past LOW. BLOCKED is terminal until an explicit
// external unblock.
package trust
