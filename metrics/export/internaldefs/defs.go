package internaldefs

import (
	"github.com/stampauth/stampauth"
)

// CounterDef defines a public type used by stampauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   stampauth.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by stampauth APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   stampauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: stampauth.MetricRegisterSuccess, Name: "stampauth_register_success_total", Help: "Successful account registrations."},
	{ID: stampauth.MetricRegisterFailure, Name: "stampauth_register_failure_total", Help: "Failed account registrations."},
	{ID: stampauth.MetricLoginSuccess, Name: "stampauth_login_success_total", Help: "Successful login attempts."},
	{ID: stampauth.MetricLoginFailure, Name: "stampauth_login_failure_total", Help: "Failed login attempts."},
	{ID: stampauth.MetricTwoFactorRequired, Name: "stampauth_two_factor_required_total", Help: "Login flows requiring a second factor."},
	{ID: stampauth.MetricTwoFactorSuccess, Name: "stampauth_two_factor_success_total", Help: "Successful second-factor verifications."},
	{ID: stampauth.MetricTwoFactorFailure, Name: "stampauth_two_factor_failure_total", Help: "Failed second-factor verifications."},
	{ID: stampauth.MetricRefreshSuccess, Name: "stampauth_refresh_success_total", Help: "Successful token refresh operations."},
	{ID: stampauth.MetricRefreshFailure, Name: "stampauth_refresh_failure_total", Help: "Failed token refresh operations."},
	{ID: stampauth.MetricTokenMismatch, Name: "stampauth_token_mismatch_total", Help: "Refresh attempts with mismatched token pairs."},
	{ID: stampauth.MetricRecoveryCodesIssued, Name: "stampauth_recovery_codes_issued_total", Help: "Recovery code batch issuances."},
	{ID: stampauth.MetricRecoveryCodeUsed, Name: "stampauth_recovery_code_used_total", Help: "Successful recovery-code redemptions."},
	{ID: stampauth.MetricRecoveryCodeFailed, Name: "stampauth_recovery_code_failed_total", Help: "Failed recovery-code redemptions."},
	{ID: stampauth.MetricEmailConfirmSuccess, Name: "stampauth_email_confirm_success_total", Help: "Successful email confirmations."},
	{ID: stampauth.MetricEmailConfirmFailure, Name: "stampauth_email_confirm_failure_total", Help: "Failed email confirmations."},
	{ID: stampauth.MetricPasswordChangeSuccess, Name: "stampauth_password_change_success_total", Help: "Successful password changes."},
	{ID: stampauth.MetricPasswordChangeFailure, Name: "stampauth_password_change_failure_total", Help: "Failed password changes."},
	{ID: stampauth.MetricAccountDeleted, Name: "stampauth_account_deleted_total", Help: "Account delete operations."},
	{ID: stampauth.MetricConcurrencyConflict, Name: "stampauth_concurrency_conflict_total", Help: "Store writes rejected by version conflicts."},
	{ID: stampauth.MetricMailDispatchFailure, Name: "stampauth_mail_dispatch_failure_total", Help: "Mail deliveries that returned an error."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: stampauth.MetricValidateLatency, Name: "stampauth_validate_latency_seconds", Help: "Token pair validation latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
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

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
