package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsAnswersByMode(t *testing.T) {
	r := NewRecorder()
	r.ObserveAnswer("exact", true, 5*time.Millisecond)
	r.ObserveAnswer("exact", true, 7*time.Millisecond)
	r.ObserveAnswer("llm", false, time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(r.answers.WithLabelValues("exact", "true")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.answers.WithLabelValues("llm", "false")))
}

func TestRecorderPersistResults(t *testing.T) {
	r := NewRecorder()
	r.ObservePersist(nil)
	r.ObservePersist(errors.New("db down"))
	r.ObservePersist(errors.New("db down"))

	require.Equal(t, 1.0, testutil.ToFloat64(r.persists.WithLabelValues("ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.persists.WithLabelValues("error")))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveAnswer("fuzzy", true, time.Millisecond)
	r.ObserveDegraded("semantic")
	r.ObservePersist(nil)
	r.ObserveHTTP("POST", "/ask", 200, time.Millisecond)
}
