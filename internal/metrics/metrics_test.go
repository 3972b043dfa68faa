package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	m := New()
	m.FeedbackRecorded()
	m.FeedbackRecorded()
	m.RolloutAttempt("created", 3)
	m.RolloutAttempt("rejected", 0)
	m.VoteProcessed("counted")
	m.VoteProcessed("counted")
	m.VoteProcessed("duplicate")
	m.FinalizeAttempt("created", 2)
	m.DiscardRun("created", 4)
	m.Recommended("lunch")

	if got := testutil.ToFloat64(m.Feedback); got != 2 {
		t.Errorf("feedback = %v", got)
	}
	if got := testutil.ToFloat64(m.RolledOutItems); got != 3 {
		t.Errorf("rolled out items = %v", got)
	}
	if got := testutil.ToFloat64(m.Rollouts.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected rollouts = %v", got)
	}
	if got := testutil.ToFloat64(m.Votes.WithLabelValues("counted")); got != 2 {
		t.Errorf("counted votes = %v", got)
	}
	if got := testutil.ToFloat64(m.Votes.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("duplicate votes = %v", got)
	}
	if got := testutil.ToFloat64(m.FinalItems); got != 2 {
		t.Errorf("final items = %v", got)
	}
	if got := testutil.ToFloat64(m.DiscardCandidates); got != 4 {
		t.Errorf("discard candidates = %v", got)
	}
	if got := testutil.ToFloat64(m.Recommendations.WithLabelValues("lunch")); got != 1 {
		t.Errorf("recommendations = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.FeedbackRecorded()
	m.RolloutAttempt("created", 1)
	m.VoteProcessed("counted")
	m.FinalizeAttempt("created", 1)
	m.DiscardRun("created", 1)
	m.Recommended("dinner")
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("nil WriteTextfile: %v", err)
	}
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.VoteProcessed("unmatched")

	path := filepath.Join(t.TempDir(), "cafeteria.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `cafeteria_votes_total{result="unmatched"} 1`) {
		t.Errorf("textfile missing vote counter:\n%s", data)
	}
}

func TestSeparateInstancesDoNotShareState(t *testing.T) {
	a, b := New(), New()
	a.FeedbackRecorded()
	if got := testutil.ToFloat64(b.Feedback); got != 0 {
		t.Errorf("second instance saw %v", got)
	}
}
