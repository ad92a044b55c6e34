package probe

import (
	"sync/atomic"
	"testing"
	"time"
)

func newTestSampler(rtt uint64, calls *atomic.Int64) *Sampler {
	s := NewSampler(2, time.Second, time.Hour)
	s.probeFn = func(addr string) (uint64, bool) {
		if calls != nil {
			calls.Add(1)
		}
		return rtt, true
	}
	return s
}

func waitForSample(t *testing.T, s *Sampler, addr string) uint64 {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ms, ok := s.Sample(addr); ok {
			return ms
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no sample for %s", addr)
	return 0
}

func TestSampleMissThenHit(t *testing.T) {
	s := newTestSampler(42, nil)
	defer s.Close()

	if _, ok := s.Sample("8.8.8.8"); ok {
		t.Error("cold cache must report no sample")
	}
	if ms := waitForSample(t, s, "8.8.8.8"); ms != 42 {
		t.Errorf("rtt = %d, want 42", ms)
	}
}

func TestSampleDoesNotReprobeFreshEntry(t *testing.T) {
	var calls atomic.Int64
	s := newTestSampler(10, &calls)
	defer s.Close()

	s.Sample("1.1.1.1")
	waitForSample(t, s, "1.1.1.1")
	for i := 0; i < 20; i++ {
		s.Sample("1.1.1.1")
	}
	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("probe calls = %d, want 1", n)
	}
}

func TestUnprobeableAddresses(t *testing.T) {
	var calls atomic.Int64
	s := newTestSampler(10, &calls)
	defer s.Close()

	for _, addr := range []string{"", "0.0.0.0", "::", "not-an-ip"} {
		if _, ok := s.Sample(addr); ok {
			t.Errorf("Sample(%q) reported a sample", addr)
		}
	}
	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("probe calls = %d, want 0", n)
	}
}

func TestPrimeFillsCacheSynchronously(t *testing.T) {
	s := newTestSampler(7, nil)
	defer s.Close()

	s.Prime([]string{"10.0.0.1", "10.0.0.2", "0.0.0.0"})

	for _, addr := range []string{"10.0.0.1", "10.0.0.2"} {
		ms, ok := s.Sample(addr)
		if !ok || ms != 7 {
			t.Errorf("Sample(%s) = %d,%v after Prime", addr, ms, ok)
		}
	}
}
