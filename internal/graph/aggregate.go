// Package graph groups correlated connections into the process-centric
// topology graph: endpoints keyed by remote address, ranked by volume,
// bounded for display, with summary counters over the full set.
package graph

import (
	"sort"

	"github.com/user/netgraph/internal/classify"
	"github.com/user/netgraph/internal/model"
)

// MaxVisibleEndpoints is the dense-display ceiling; list views may raise it
// through Options.MaxVisible.
const MaxVisibleEndpoints = 12

// heavyTalkerRank is the rank cutoff for the heavy-talker flag.
const heavyTalkerRank = 5

// labelMax caps display labels; longer addresses are truncated with an
// ellipsis marker.
const labelMax = 15

// Options configures one aggregation pass.
type Options struct {
	// Center labels the graph's center node (hostname, or process name
	// when the engine is focused on one PID).
	Center string
	// MaxVisible bounds the endpoint list; zero means MaxVisibleEndpoints.
	MaxVisible int
	// Rules is the suspicion rule set. Nil behaves as an empty set.
	Rules *classify.RuleSet
	// Latency holds the ring thresholds.
	Latency classify.LatencyConfig
	// SampleMS returns a round-trip sample for a remote address. Nil, or
	// a false second return, leaves the endpoint's bucket Unknown.
	SampleMS func(addr string) (uint64, bool)
}

// Aggregate builds a Graph from one scan's connections. The input is never
// mutated; the result is a fresh snapshot replaced wholesale each cycle.
func Aggregate(conns []model.Connection, opts Options) *model.Graph {
	maxVisible := opts.MaxVisible
	if maxVisible <= 0 {
		maxVisible = MaxVisibleEndpoints
	}
	rules := opts.Rules
	if rules == nil {
		rules = &classify.RuleSet{}
	}

	g := &model.Graph{
		Center: opts.Center,
		Summary: model.Summary{
			TotalConns: len(conns),
			ByState:    make(map[model.ConnState]int),
		},
	}

	// Group connections by remote address. Listen sockets carry an
	// all-zero remote, so they collapse into a wildcard pseudo endpoint
	// per address family. Insertion order is preserved so the
	// dominant-state recency rule is meaningful.
	groups := make(map[string][]model.Connection)
	var order []string
	for _, c := range conns {
		g.Summary.ByState[c.State]++

		key := c.RemoteAddr
		if key == "" {
			key = "0.0.0.0"
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	// Suspicion evaluation runs over the full unfiltered set so summary
	// counters never drop endpoints the display bound discards.
	distinctTags := make(map[string]bool)
	matchedByAddr := make(map[string][]string)
	for key, members := range groups {
		repeats := len(members)
		for _, c := range members {
			ids := rules.Evaluate(classify.Subject{
				Conn:     c,
				Locality: classify.Locality(c),
				Repeats:  repeats,
			})
			if len(ids) == 0 {
				continue
			}
			g.Summary.Suspicious++
			matchedByAddr[key] = append(matchedByAddr[key], ids...)
			tags, _ := rules.TagsFor(ids)
			for _, tag := range tags {
				distinctTags[tag] = true
			}
		}
	}
	g.Summary.DistinctTags = len(distinctTags)

	endpoints := make([]model.Endpoint, 0, len(order))
	for _, key := range order {
		members := groups[key]
		listenOnly := allListening(members)

		ep := model.Endpoint{
			Addr:      key,
			Label:     truncateLabel(key),
			ConnCount: len(members),
			State:     dominantState(members),
			Locality:  classify.LocalityOfAddr(key, listenOnly),
			Latency:   model.LatencyUnknown,
		}
		if opts.SampleMS != nil {
			if ms, ok := opts.SampleMS(key); ok {
				ep.Latency = classify.Latency(ms, true, opts.Latency)
			}
		}
		if ids := matchedByAddr[key]; len(ids) > 0 {
			ep.Tags, ep.MaxSeverity = rules.TagsFor(ids)
		}
		endpoints = append(endpoints, ep)
	}

	markHeavyTalkers(endpoints)

	// Rank by volume for the bounded visible set.
	sort.SliceStable(endpoints, func(i, j int) bool {
		return endpoints[i].ConnCount > endpoints[j].ConnCount
	})
	if len(endpoints) > maxVisible {
		g.Dropped = len(endpoints) - maxVisible
		endpoints = endpoints[:maxVisible]
	}
	g.Endpoints = endpoints

	return g
}

func allListening(members []model.Connection) bool {
	for _, c := range members {
		if !c.Listening() {
			return false
		}
	}
	return true
}

// dominantState picks the display state for an endpoint: the state of the
// most recently observed member, with simultaneous differing states broken
// by display severity so teardown states win over established ones.
func dominantState(members []model.Connection) model.ConnState {
	if len(members) == 0 {
		return model.StateUnknown
	}
	dominant := members[len(members)-1].State
	for i := len(members) - 1; i >= 0; i-- {
		if members[i].State.DisplaySeverity() > dominant.DisplaySeverity() {
			dominant = members[i].State
		}
	}
	return dominant
}

// markHeavyTalkers flags endpoints ranked in the top five by member count,
// ties included. With fewer than five endpoints only the largest is
// flagged.
func markHeavyTalkers(endpoints []model.Endpoint) {
	if len(endpoints) == 0 {
		return
	}

	counts := make([]int, len(endpoints))
	for i, ep := range endpoints {
		counts[i] = ep.ConnCount
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	threshold := counts[0]
	if len(counts) >= heavyTalkerRank {
		threshold = counts[heavyTalkerRank-1]
	}

	for i := range endpoints {
		endpoints[i].HeavyTalker = endpoints[i].ConnCount >= threshold && endpoints[i].ConnCount > 0
	}
}

func truncateLabel(addr string) string {
	if len(addr) <= labelMax {
		return addr
	}
	return addr[:labelMax-3] + "..."
}
