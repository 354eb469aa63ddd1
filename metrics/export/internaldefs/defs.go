package internaldefs

import (
	"github.com/MrEthical07/tokenguard"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   tokenguard.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   tokenguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: tokenguard.MetricTokenIssued, Name: "tokenguard_token_issued_total", Help: "Tokens issued."},
	{ID: tokenguard.MetricTokenIssueFailure, Name: "tokenguard_token_issue_failure_total", Help: "Failed token issuances."},
	{ID: tokenguard.MetricValidateSuccess, Name: "tokenguard_validate_success_total", Help: "Requests admitted by the session guard."},
	{ID: tokenguard.MetricValidateMissingToken, Name: "tokenguard_validate_missing_token_total", Help: "Requests without a bearer token."},
	{ID: tokenguard.MetricValidateMalformed, Name: "tokenguard_validate_malformed_total", Help: "Tokens rejected as malformed or forged."},
	{ID: tokenguard.MetricValidateExpired, Name: "tokenguard_validate_expired_total", Help: "Tokens rejected as expired."},
	{ID: tokenguard.MetricValidateMissingTokenID, Name: "tokenguard_validate_missing_token_id_total", Help: "Tokens rejected for a missing jti."},
	{ID: tokenguard.MetricValidateRevoked, Name: "tokenguard_validate_revoked_total", Help: "Tokens rejected as revoked."},
	{ID: tokenguard.MetricValidateStoreUnavailable, Name: "tokenguard_validate_store_unavailable_total", Help: "Tokens rejected because the revocation store was unreachable."},
	{ID: tokenguard.MetricValidateFailOpen, Name: "tokenguard_validate_fail_open_total", Help: "Tokens admitted without a revocation check under fail-open policy."},
	{ID: tokenguard.MetricLogout, Name: "tokenguard_logout_total", Help: "Tokens revoked by logout."},
	{ID: tokenguard.MetricLogoutSkipped, Name: "tokenguard_logout_skipped_total", Help: "Logouts of already expired tokens."},
	{ID: tokenguard.MetricLogoutRejected, Name: "tokenguard_logout_rejected_total", Help: "Logouts refused for an unusable token."},
	{ID: tokenguard.MetricLogoutStoreFailure, Name: "tokenguard_logout_store_failure_total", Help: "Logouts whose revocation write failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: tokenguard.MetricValidateLatency, Name: "tokenguard_validate_latency_seconds", Help: "Validate latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "tokenguard_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramUpperBounds are the finite bucket bounds in seconds; the engine's
// eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// can't carry a label.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
