package collectors

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rkvision/fpganode/internal/pool"
)

func TestPoolCollector_Collect(t *testing.T) {
	p := pool.New(4, 64)
	defer p.Close()

	if _, err := p.Acquire(time.Second); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	c := NewPoolCollector(p)
	c.collect()

	if got := testutil.ToFloat64(poolSlotsInUse); got != 1 {
		t.Errorf("slots_in_use = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poolSlotsTotal); got != 4 {
		t.Errorf("slots_total = %v, want 4", got)
	}
}
