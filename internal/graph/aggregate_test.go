package graph

import (
	"fmt"
	"testing"

	"github.com/user/netgraph/internal/classify"
	"github.com/user/netgraph/internal/model"
)

func conn(remote string, port uint16, state model.ConnState) model.Connection {
	return model.Connection{
		Proto:      model.ProtoTCP,
		LocalAddr:  "10.0.0.2",
		LocalPort:  50000,
		RemoteAddr: remote,
		RemotePort: port,
		State:      state,
	}
}

func TestAggregateGroupsByRemote(t *testing.T) {
	conns := []model.Connection{
		conn("8.8.8.8", 443, model.StateEstablished),
		conn("8.8.8.8", 443, model.StateEstablished),
		conn("1.1.1.1", 853, model.StateEstablished),
	}

	g := Aggregate(conns, Options{Center: "host"})

	if len(g.Endpoints) != 2 {
		t.Fatalf("endpoints = %d, want 2", len(g.Endpoints))
	}
	// Ranked by volume: 8.8.8.8 first.
	if g.Endpoints[0].Addr != "8.8.8.8" || g.Endpoints[0].ConnCount != 2 {
		t.Errorf("top endpoint = %s (%d), want 8.8.8.8 (2)", g.Endpoints[0].Addr, g.Endpoints[0].ConnCount)
	}
	if g.Summary.TotalConns != 3 {
		t.Errorf("total = %d, want 3", g.Summary.TotalConns)
	}
	if g.Summary.ByState[model.StateEstablished] != 3 {
		t.Errorf("established histogram = %d, want 3", g.Summary.ByState[model.StateEstablished])
	}
}

func TestAggregateListenOnlyPseudoEndpoint(t *testing.T) {
	conns := []model.Connection{
		{LocalAddr: "0.0.0.0", LocalPort: 22, RemoteAddr: "0.0.0.0", State: model.StateListen},
		{LocalAddr: "0.0.0.0", LocalPort: 80, RemoteAddr: "0.0.0.0", State: model.StateListen},
		conn("8.8.8.8", 443, model.StateEstablished),
	}

	g := Aggregate(conns, Options{})
	var listen *model.Endpoint
	for i := range g.Endpoints {
		if g.Endpoints[i].Locality == model.LocalityListenOnly {
			listen = &g.Endpoints[i]
		}
	}
	if listen == nil {
		t.Fatal("no listen-only endpoint produced")
	}
	if listen.ConnCount != 2 {
		t.Errorf("listen endpoint count = %d, want 2", listen.ConnCount)
	}
	if listen.State != model.StateListen {
		t.Errorf("listen endpoint state = %v, want LISTEN", listen.State)
	}
}

func TestDominantStatePrefersSeverity(t *testing.T) {
	members := []model.Connection{
		conn("8.8.8.8", 443, model.StateClosing),
		conn("8.8.8.8", 443, model.StateEstablished),
	}
	// Most recent is established, but closing is more severe for display.
	if got := dominantState(members); got != model.StateClosing {
		t.Errorf("dominant = %v, want CLOSING", got)
	}

	members = []model.Connection{
		conn("8.8.8.8", 443, model.StateEstablished),
		conn("8.8.8.8", 443, model.StateTimeWait),
	}
	if got := dominantState(members); got != model.StateTimeWait {
		t.Errorf("dominant = %v, want TIME_WAIT", got)
	}
}

func TestHeavyTalkerFewerThanFiveEndpoints(t *testing.T) {
	// 7 connections to one remote among 4 distinct endpoints: only the
	// 7-connection endpoint is flagged.
	var conns []model.Connection
	for i := 0; i < 7; i++ {
		conns = append(conns, conn("8.8.8.8", 443, model.StateEstablished))
	}
	conns = append(conns,
		conn("1.1.1.1", 443, model.StateEstablished),
		conn("9.9.9.9", 443, model.StateEstablished),
		conn("2.2.2.2", 443, model.StateEstablished),
	)

	g := Aggregate(conns, Options{})
	if len(g.Endpoints) != 4 {
		t.Fatalf("endpoints = %d, want 4", len(g.Endpoints))
	}
	for _, ep := range g.Endpoints {
		want := ep.Addr == "8.8.8.8"
		if ep.HeavyTalker != want {
			t.Errorf("endpoint %s heavy = %v, want %v", ep.Addr, ep.HeavyTalker, want)
		}
	}
}

func TestHeavyTalkerTopFiveWithTies(t *testing.T) {
	var conns []model.Connection
	counts := []int{9, 8, 7, 6, 5, 5, 1}
	for i, n := range counts {
		addr := fmt.Sprintf("20.0.0.%d", i+1)
		for j := 0; j < n; j++ {
			conns = append(conns, conn(addr, 443, model.StateEstablished))
		}
	}

	g := Aggregate(conns, Options{})
	heavy := 0
	for _, ep := range g.Endpoints {
		if ep.HeavyTalker {
			heavy++
			if ep.ConnCount < 5 {
				t.Errorf("endpoint %s with %d conns flagged heavy", ep.Addr, ep.ConnCount)
			}
		}
	}
	// Rank 5 count is 5, and a sixth endpoint ties it.
	if heavy != 6 {
		t.Errorf("heavy talkers = %d, want 6 (ties included)", heavy)
	}
}

func TestAggregateBoundsVisibleSet(t *testing.T) {
	var conns []model.Connection
	for i := 0; i < 15; i++ {
		addr := fmt.Sprintf("30.0.0.%d", i+1)
		for j := 0; j <= i; j++ { // distinct counts for stable ranking
			conns = append(conns, conn(addr, 443, model.StateEstablished))
		}
	}

	g := Aggregate(conns, Options{MaxVisible: 12})
	if len(g.Endpoints) != 12 {
		t.Fatalf("visible endpoints = %d, want 12", len(g.Endpoints))
	}
	if g.Dropped != 3 {
		t.Errorf("dropped = %d, want 3", g.Dropped)
	}
	// Summary totals reflect all 15 endpoints' connections.
	want := 15 * 16 / 2
	if g.Summary.TotalConns != want {
		t.Errorf("total = %d, want %d", g.Summary.TotalConns, want)
	}
	// The retained set is the top 12 by count.
	for _, ep := range g.Endpoints {
		if ep.ConnCount < 4 {
			t.Errorf("endpoint %s (%d conns) should have been dropped", ep.Addr, ep.ConnCount)
		}
	}
}

func TestAggregateSuspicionOverFullSet(t *testing.T) {
	rules := &classify.RuleSet{Rules: []classify.Rule{{
		ID:       "pub",
		Severity: "high",
		Tags:     []string{"watch"},
		Match:    classify.Predicate{Locality: "public"},
	}}}

	var conns []model.Connection
	for i := 0; i < 14; i++ {
		conns = append(conns, conn(fmt.Sprintf("40.0.0.%d", i+1), 443, model.StateEstablished))
	}

	g := Aggregate(conns, Options{MaxVisible: 4, Rules: rules})
	if len(g.Endpoints) != 4 {
		t.Fatalf("visible = %d, want 4", len(g.Endpoints))
	}
	if g.Dropped != 10 {
		t.Errorf("dropped = %d, want 10", g.Dropped)
	}
	// Every connection matched, including those on dropped endpoints.
	if g.Summary.Suspicious != 14 {
		t.Errorf("suspicious = %d, want 14", g.Summary.Suspicious)
	}
	if g.Summary.DistinctTags != 1 {
		t.Errorf("distinct tags = %d, want 1", g.Summary.DistinctTags)
	}
	for _, ep := range g.Endpoints {
		if ep.MaxSeverity != model.SeverityHigh {
			t.Errorf("endpoint %s severity = %v, want high", ep.Addr, ep.MaxSeverity)
		}
		if len(ep.Tags) != 1 || ep.Tags[0] != "watch" {
			t.Errorf("endpoint %s tags = %v, want [watch]", ep.Addr, ep.Tags)
		}
	}
}

func TestAggregateLatencySampling(t *testing.T) {
	conns := []model.Connection{
		conn("8.8.8.8", 443, model.StateEstablished),
		conn("1.1.1.1", 443, model.StateEstablished),
	}
	samples := map[string]uint64{"8.8.8.8": 10}

	g := Aggregate(conns, Options{
		Latency: classify.DefaultLatencyConfig(),
		SampleMS: func(addr string) (uint64, bool) {
			ms, ok := samples[addr]
			return ms, ok
		},
	})

	byAddr := make(map[string]model.Endpoint)
	for _, ep := range g.Endpoints {
		byAddr[ep.Addr] = ep
	}
	if byAddr["8.8.8.8"].Latency != model.LatencyLow {
		t.Errorf("sampled endpoint latency = %v, want low", byAddr["8.8.8.8"].Latency)
	}
	if byAddr["1.1.1.1"].Latency != model.LatencyUnknown {
		t.Errorf("unsampled endpoint latency = %v, want unknown", byAddr["1.1.1.1"].Latency)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	g := Aggregate(nil, Options{Center: "host"})
	if g == nil {
		t.Fatal("aggregate must always produce a graph")
	}
	if len(g.Endpoints) != 0 || g.Summary.TotalConns != 0 {
		t.Errorf("empty input produced %+v", g)
	}
}

func TestTruncateLabel(t *testing.T) {
	if got := truncateLabel("8.8.8.8"); got != "8.8.8.8" {
		t.Errorf("short label changed: %q", got)
	}
	long := "2001:4860:4860:0:0:0:0:8888"
	got := truncateLabel(long)
	if len(got) != labelMax {
		t.Errorf("truncated label length = %d, want %d", len(got), labelMax)
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("truncated label %q missing ellipsis", got)
	}
}
