package internaldefs

import (
	"github.com/MrEthical07/caseguard"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   caseguard.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   caseguard.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported separately because it is read from the recorder,
// not from the snapshot.
const (
	AuditDroppedName = "caseguard_audit_queue_dropped_total"
	AuditDroppedHelp = "Audit records dropped by the dispatcher because the queue was full."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: caseguard.MetricAuthzAllowed, Name: "caseguard_authz_allowed_total", Help: "Authorization checks that allowed the request."},
	{ID: caseguard.MetricAuthzDenied, Name: "caseguard_authz_denied_total", Help: "Authorization checks that denied the request."},
	{ID: caseguard.MetricLoginSuccess, Name: "caseguard_login_success_total", Help: "Successful logins."},
	{ID: caseguard.MetricLoginFailure, Name: "caseguard_login_failure_total", Help: "Failed logins."},
	{ID: caseguard.MetricAccountLocked, Name: "caseguard_account_locked_total", Help: "Accounts locked after repeated failures."},
	{ID: caseguard.MetricUserCreated, Name: "caseguard_user_created_total", Help: "Accounts created."},
	{ID: caseguard.MetricUserDuplicate, Name: "caseguard_user_duplicate_total", Help: "Account creations rejected as duplicate."},
	{ID: caseguard.MetricStatusToggled, Name: "caseguard_status_toggled_total", Help: "Account activations and deactivations."},
	{ID: caseguard.MetricPermissionsUpdated, Name: "caseguard_permissions_updated_total", Help: "Permission matrix overrides applied."},
	{ID: caseguard.MetricRoleChanged, Name: "caseguard_role_changed_total", Help: "Role changes."},
	{ID: caseguard.MetricProfileUpdated, Name: "caseguard_profile_updated_total", Help: "Profile updates."},
	{ID: caseguard.MetricPasswordChanged, Name: "caseguard_password_changed_total", Help: "Password changes."},
	{ID: caseguard.MetricActivityLogged, Name: "caseguard_activity_logged_total", Help: "Activity log entries written."},
	{ID: caseguard.MetricAuditRecorded, Name: "caseguard_audit_recorded_total", Help: "Audit records persisted."},
	{ID: caseguard.MetricAuditFailed, Name: "caseguard_audit_failed_total", Help: "Audit records that could not be persisted."},
	{ID: caseguard.MetricAuditDropped, Name: "caseguard_audit_dropped_total", Help: "Audit records dropped before persistence."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: caseguard.MetricAuthorizeLatency, Name: "caseguard_authorize_latency_seconds", Help: "Authorization decision latency."},
}

// HistogramUpperBounds are the bucket limits in seconds, matching the engine's
// millisecond buckets. The last bucket is unbounded.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters without native histograms.
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

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
