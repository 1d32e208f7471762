// Package rgerrors defines the error taxonomy shared by every core
// component: a small fixed set of named failure kinds that callers branch
// on with errors.Is, instead of ad-hoc sentinel values scattered per
// package.
package rgerrors

import "github.com/agilira/go-errors"

// Error codes, one per kind named in the detection engine's error design.
const (
	CodeIO               = "RANSOMGUARD_IO"
	CodeNoBackup         = "RANSOMGUARD_NO_BACKUP"
	CodeModelUnavailable = "RANSOMGUARD_MODEL_UNAVAILABLE"
	CodeFeatureShape     = "RANSOMGUARD_FEATURE_SHAPE"
	CodeRecoveryBusy     = "RANSOMGUARD_RECOVERY_BUSY"
	CodeAlertSuppressed  = "RANSOMGUARD_ALERT_SUPPRESSED"
)

// New wraps errors.New so callers only import this package.
func New(code, message string) *errors.Error {
	return errors.New(code, message)
}

// Wrap wraps errors.Wrap so callers only import this package.
func Wrap(err error, code, message string) *errors.Error {
	return errors.Wrap(err, code, message)
}

// IO reports a filesystem or catalog I/O failure (spec: IoError).
func IO(err error, path string) *errors.Error {
	return Wrap(err, CodeIO, "filesystem or catalog operation failed").WithContext("path", path)
}

// NoBackup reports a restore requested for an untracked path (spec: NoBackup).
func NoBackup(relpath string) *errors.Error {
	return New(CodeNoBackup, "no backup exists for path").WithContext("relpath", relpath)
}

// ModelUnavailable reports the anomaly model is absent or broken (spec: ModelUnavailable).
func ModelUnavailable(err error) *errors.Error {
	return Wrap(err, CodeModelUnavailable, "anomaly model unavailable, degrading to threshold+rules")
}

// FeatureShape reports a feature-vector width mismatch (spec: FeatureShapeMismatch).
func FeatureShape(got, want int) *errors.Error {
	return New(CodeFeatureShape, "feature vector width mismatch").
		WithContext("got", got).
		WithContext("want", want)
}

// RecoveryBusy reports a second restore_all while one is already running (spec: RecoveryBusy).
func RecoveryBusy() *errors.Error {
	return New(CodeRecoveryBusy, "recovery already in progress")
}

// AlertSuppressed reports a cooldown or dedup hit at the alert sink (spec: AlertSuppressed).
func AlertSuppressed(reason string) *errors.Error {
	return New(CodeAlertSuppressed, "alert suppressed").WithContext("reason", reason)
}

// Is reports whether err carries the given error code.
func Is(err error, code string) bool {
	var e *errors.Error
	if ae, ok := err.(*errors.Error); ok {
		e = ae
	} else {
		return false
	}
	return e.Code == code
}
