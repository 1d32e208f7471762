package engine

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ransomguard/ransomguard/internal/alert"
)

type recordingAdapter struct {
	delivered []alert.Alert
	err       error
}

func (r *recordingAdapter) Deliver(a alert.Alert) error {
	r.delivered = append(r.delivered, a)
	return r.err
}

func TestMetricsAdapter_IncrementsDetectionsOnRansomwareDetection(t *testing.T) {
	before := testutil.ToFloat64(detectionsTotal)
	rec := &recordingAdapter{}
	m := newMetricsAdapter(rec)

	require.NoError(t, m.Deliver(alert.Alert{Kind: "RANSOMWARE_DETECTION", Message: "POTENTIAL RANSOMWARE ACTIVITY DETECTED!"}))

	assert.Equal(t, before+1, testutil.ToFloat64(detectionsTotal))
	assert.Len(t, rec.delivered, 1)
}

func TestMetricsAdapter_IncrementsRecoveriesOnCompleteAndFailed(t *testing.T) {
	before := testutil.ToFloat64(recoveriesTotal)
	rec := &recordingAdapter{}
	m := newMetricsAdapter(rec)

	require.NoError(t, m.Deliver(alert.Alert{Kind: "RECOVERY_COMPLETE", Message: "RECOVERY COMPLETE: 3 restored, 0 failed"}))
	require.NoError(t, m.Deliver(alert.Alert{Kind: "RECOVERY FAILED", Message: "RECOVERY FAILED: 1 restored, 2 failed"}))

	assert.Equal(t, before+2, testutil.ToFloat64(recoveriesTotal))
}

func TestMetricsAdapter_ForwardsToNilNextWithoutPanic(t *testing.T) {
	m := newMetricsAdapter(nil)
	assert.NoError(t, m.Deliver(alert.Alert{Kind: "RECOVERY_PROCESS_INITIATED"}))
}

func TestMetricsAdapter_PropagatesNextError(t *testing.T) {
	rec := &recordingAdapter{err: errors.New("delivery failed")}
	m := newMetricsAdapter(rec)
	assert.Error(t, m.Deliver(alert.Alert{Kind: "RANSOMWARE_DETECTION"}))
}
