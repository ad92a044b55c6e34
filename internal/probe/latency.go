// Package probe measures round-trip time to remote endpoints. Samples feed
// the latency classification that picks an endpoint's placement ring; an
// address with no sample yet stays in the unknown bucket.
package probe

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/user/netgraph/internal/util"
)

// Probe targets. A TCP connect to any of these is enough for a timing
// sample; a refused connection still proves the round trip.
var probePorts = []uint16{443, 80, 22}

const (
	defaultWorkers = 8
	defaultTimeout = 2 * time.Second
	defaultTTL     = 30 * time.Second
)

type entry struct {
	ms uint64
	at time.Time
}

// Sampler caches one RTT sample per remote address and refreshes them on a
// worker pool. Sample never blocks: a cache miss schedules a probe and
// reports no sample until the probe lands.
type Sampler struct {
	timeout time.Duration
	ttl     time.Duration

	// probeFn is replaceable for tests.
	probeFn func(addr string) (uint64, bool)

	mu       sync.Mutex
	samples  map[string]entry
	inflight map[string]bool

	jobs chan string
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSampler starts a sampler with the given worker count. Zero values
// select the defaults.
func NewSampler(workers int, timeout, ttl time.Duration) *Sampler {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	s := &Sampler{
		timeout:  timeout,
		ttl:      ttl,
		samples:  make(map[string]entry),
		inflight: make(map[string]bool),
		jobs:     make(chan string, 256),
		done:     make(chan struct{}),
	}
	s.probeFn = s.connectProbe

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Close stops the workers after any in-flight probes finish.
func (s *Sampler) Close() {
	close(s.done)
	s.wg.Wait()
}

// Sample returns the cached RTT for an address in milliseconds. A stale
// entry is still returned while its refresh is pending; only an address
// never successfully probed reports no sample.
func (s *Sampler) Sample(addr string) (uint64, bool) {
	if !probeable(addr) {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.samples[addr]
	if !ok || time.Since(e.at) >= s.ttl {
		s.schedule(addr)
	}
	if !ok {
		return 0, false
	}
	return e.ms, true
}

// Prime probes a set of addresses and waits for all of them, for one-shot
// callers that read the cache immediately afterwards.
func (s *Sampler) Prime(addrs []string) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, cap(s.jobs))
	for _, addr := range addrs {
		if !probeable(addr) {
			continue
		}
		wg.Add(1)
		go func(a string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			s.probe(a)
		}(addr)
	}
	wg.Wait()
}

// schedule marks an address in flight and queues it without blocking. The
// caller holds the mutex.
func (s *Sampler) schedule(addr string) {
	if s.inflight[addr] {
		return
	}
	select {
	case s.jobs <- addr:
		s.inflight[addr] = true
	default:
		// queue full, retry on a later Sample
	}
}

func (s *Sampler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case addr := <-s.jobs:
			s.probe(addr)
		}
	}
}

func (s *Sampler) probe(addr string) {
	ms, ok := s.probeFn(addr)

	s.mu.Lock()
	delete(s.inflight, addr)
	if ok {
		s.samples[addr] = entry{ms: ms, at: time.Now()}
	}
	s.mu.Unlock()

	if ok {
		util.Debug("probe: %s rtt %dms", addr, ms)
	}
}

// connectProbe times a TCP connect. A refused connection still yields a
// valid sample - the packet made the round trip.
func (s *Sampler) connectProbe(addr string) (uint64, bool) {
	for _, port := range probePorts {
		target := net.JoinHostPort(addr, strconv.Itoa(int(port)))
		start := time.Now()
		conn, err := net.DialTimeout("tcp", target, s.timeout)
		elapsed := uint64(time.Since(start).Milliseconds())

		if err == nil {
			conn.Close()
			return elapsed, true
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return elapsed, true
		}
	}
	return 0, false
}

// probeable filters out addresses that cannot meaningfully be timed.
func probeable(addr string) bool {
	switch addr {
	case "", "0.0.0.0", "::":
		return false
	}
	return net.ParseIP(addr) != nil
}
