package alert

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingAdapter struct {
	delivered []Alert
	err       error
}

func (r *recordingAdapter) Deliver(a Alert) error {
	r.delivered = append(r.delivered, a)
	return r.err
}

func newTestSink(t *testing.T, cooldown time.Duration, adapter DeliveryAdapter) (*Sink, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "alerts.log")
	dbDir := t.TempDir()
	s, err := New(logPath, dbDir, cooldown, adapter, false, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, logPath
}

func TestSink_EmitWritesLogAndDelivers(t *testing.T) {
	adapter := &recordingAdapter{}
	s, logPath := newTestSink(t, time.Minute, adapter)

	s.Emit("RANSOMWARE_DETECTION: suspicious activity")

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "ALERT: RANSOMWARE_DETECTION: suspicious activity")
	require.Len(t, adapter.delivered, 1)
	assert.Equal(t, "RANSOMWARE_DETECTION", adapter.delivered[0].Kind)
}

func TestSink_CooldownSuppressesSameKind(t *testing.T) {
	adapter := &recordingAdapter{}
	s, _ := newTestSink(t, time.Minute, adapter)

	s.Emit("RANSOMWARE_DETECTION: first")
	s.Emit("RANSOMWARE_DETECTION: second — different message, same kind")

	assert.Len(t, adapter.delivered, 1)
}

func TestSink_DifferentKindsNotSuppressed(t *testing.T) {
	adapter := &recordingAdapter{}
	s, _ := newTestSink(t, time.Minute, adapter)

	s.Emit("RANSOMWARE_DETECTION: first")
	s.Emit("RECOVERY_COMPLETE: done")

	assert.Len(t, adapter.delivered, 2)
}

func TestSink_FingerprintDedupSuppressesIdenticalMessage(t *testing.T) {
	adapter := &recordingAdapter{}
	s, _ := newTestSink(t, time.Nanosecond, adapter) // cooldown effectively off

	msg := "custom kind: exact same content every time"
	s.Emit(msg)
	time.Sleep(5 * time.Millisecond)
	s.Emit(msg)

	assert.Len(t, adapter.delivered, 1)
}

func TestSink_CooldownExpiresAfterWindow(t *testing.T) {
	adapter := &recordingAdapter{}
	s, _ := newTestSink(t, 20*time.Millisecond, adapter)

	s.Emit("custom kind: one")
	time.Sleep(40 * time.Millisecond)
	s.Emit("custom kind: two, distinct fingerprint")

	assert.Len(t, adapter.delivered, 2)
}

func TestSink_DeliveryErrorDoesNotPropagate(t *testing.T) {
	adapter := &recordingAdapter{err: assert.AnError}
	s, _ := newTestSink(t, time.Minute, adapter)

	assert.NotPanics(t, func() {
		s.Emit("custom kind: whatever")
	})
}

func TestSink_Tail(t *testing.T) {
	s, _ := newTestSink(t, time.Nanosecond, nil)

	for i := 0; i < 5; i++ {
		s.Emit("distinct kind " + string(rune('a'+i)) + ": message " + string(rune('a'+i)))
	}

	tail := s.Tail(3)
	require.Len(t, tail, 3)
	assert.Equal(t, "distinct kind c: message c", tail[0].Message)
	assert.Equal(t, "distinct kind e: message e", tail[2].Message)
}

func TestSink_TailMoreThanAvailable(t *testing.T) {
	s, _ := newTestSink(t, time.Nanosecond, nil)
	s.Emit("one kind: a")

	tail := s.Tail(10)
	assert.Len(t, tail, 1)
}
