package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/caseguard"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[caseguard.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("metric id %d listed twice", def.ID)
		}
		if names[def.Name] || def.Name == AuditDroppedName {
			t.Fatalf("metric name %q reused", def.Name)
		}
		if !strings.HasPrefix(def.Name, "caseguard_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}

	snapshot := caseguard.NewMetrics(caseguard.MetricsConfig{Enabled: true}).Snapshot()
	for id := range snapshot.Counters {
		if !seen[id] {
			t.Fatalf("counter %d has no export definition", id)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatal("bucket bounds and suffixes disagree")
	}
}
