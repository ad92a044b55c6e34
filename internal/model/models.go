// Package model defines core data structures for netgraph.
package model

// Protocol identifies the transport protocol of a connection.
type Protocol string

const (
	ProtoTCP Protocol = "tcp"
	ProtoUDP Protocol = "udp"
)

// ConnState represents a TCP connection state as reported by the kernel.
type ConnState int

const (
	StateUnknown ConnState = iota
	StateEstablished
	StateSynSent
	StateSynRecv
	StateFinWait1
	StateFinWait2
	StateTimeWait
	StateClose
	StateCloseWait
	StateLastAck
	StateListen
	StateClosing
)

// stateFromHex maps the hexadecimal state codes used in /proc/net/tcp.
var stateFromHex = map[string]ConnState{
	"01": StateEstablished,
	"02": StateSynSent,
	"03": StateSynRecv,
	"04": StateFinWait1,
	"05": StateFinWait2,
	"06": StateTimeWait,
	"07": StateClose,
	"08": StateCloseWait,
	"09": StateLastAck,
	"0A": StateListen,
	"0B": StateClosing,
}

// ParseHexState converts a kernel hex state code to a ConnState.
// Unrecognized codes yield StateUnknown.
func ParseHexState(code string) ConnState {
	if s, ok := stateFromHex[code]; ok {
		return s
	}
	return StateUnknown
}

var stateNames = map[ConnState]string{
	StateUnknown:     "UNKNOWN",
	StateEstablished: "ESTABLISHED",
	StateSynSent:     "SYN_SENT",
	StateSynRecv:     "SYN_RECV",
	StateFinWait1:    "FIN_WAIT1",
	StateFinWait2:    "FIN_WAIT2",
	StateTimeWait:    "TIME_WAIT",
	StateClose:       "CLOSE",
	StateCloseWait:   "CLOSE_WAIT",
	StateLastAck:     "LAST_ACK",
	StateListen:      "LISTEN",
	StateClosing:     "CLOSING",
}

func (s ConnState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// DisplaySeverity ranks states for dominant-state selection when a remote
// endpoint has members in several states at once. Established sockets are
// the least noteworthy, teardown states the most.
func (s ConnState) DisplaySeverity() int {
	switch s {
	case StateEstablished:
		return 0
	case StateListen:
		return 1
	case StateSynSent, StateSynRecv:
		return 2
	case StateFinWait1, StateFinWait2, StateTimeWait, StateCloseWait, StateLastAck:
		return 3
	case StateClosing, StateClose:
		return 4
	default:
		return 0
	}
}

// Locality classifies a remote address by network reachability.
type Locality int

const (
	LocalityLoopback Locality = iota
	LocalityListenOnly
	LocalityPrivate
	LocalityPublic
)

var localityNames = map[Locality]string{
	LocalityLoopback:   "loopback",
	LocalityListenOnly: "listen-only",
	LocalityPrivate:    "private",
	LocalityPublic:     "public",
}

func (l Locality) String() string { return localityNames[l] }

// LatencyBucket is a coarse round-trip-time classification used for
// spatial placement on the topology rings.
type LatencyBucket int

const (
	LatencyUnknown LatencyBucket = iota
	LatencyLow
	LatencyMedium
	LatencyHigh
)

var latencyNames = map[LatencyBucket]string{
	LatencyUnknown: "unknown",
	LatencyLow:     "low",
	LatencyMedium:  "medium",
	LatencyHigh:    "high",
}

func (b LatencyBucket) String() string { return latencyNames[b] }

// Severity ranks suspicion rule findings.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string { return severityNames[s] }

// ParseSeverity maps a rule-file severity string to a Severity.
// Unrecognized values default to low.
func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Connection is one observed socket. A fresh set is produced on every scan
// cycle and replaced wholesale on the next; only the correlator mutates a
// Connection after creation, filling in PID and Process. Zero values for
// Inode, PID and Process mean "not known" - there is no sentinel string.
type Connection struct {
	Proto      Protocol  `json:"proto"`
	LocalAddr  string    `json:"local_addr"`
	LocalPort  uint16    `json:"local_port"`
	RemoteAddr string    `json:"remote_addr"`
	RemotePort uint16    `json:"remote_port"`
	State      ConnState `json:"state"`
	Inode      uint64    `json:"inode,omitempty"`
	PID        int       `json:"pid,omitempty"`
	Process    string    `json:"process,omitempty"`
}

// Listening reports whether the socket has no remote peer. UDP sockets
// carry no TCP state, so an all-zero remote endpoint counts as unconnected.
func (c Connection) Listening() bool {
	return c.State == StateListen ||
		(c.RemotePort == 0 && (c.RemoteAddr == "0.0.0.0" || c.RemoteAddr == "::" || c.RemoteAddr == ""))
}

// ProcessInfo describes the owner of one or more sockets. Looked up on
// demand during correlation and not retained independently.
type ProcessInfo struct {
	PID    int    `json:"pid"`
	Name   string `json:"name"`
	AgeSec int64  `json:"age_sec,omitempty"`
}

// Endpoint is the aggregated view of all connections sharing one remote
// address, fully recomputed each cycle.
type Endpoint struct {
	Addr        string        `json:"addr"`
	Label       string        `json:"label"`
	ConnCount   int           `json:"conn_count"`
	State       ConnState     `json:"state"`
	Locality    Locality      `json:"locality"`
	Latency     LatencyBucket `json:"latency"`
	HeavyTalker bool          `json:"heavy_talker"`
	Tags        []string      `json:"tags,omitempty"`
	MaxSeverity Severity      `json:"max_severity"`
	X           float64       `json:"x"`
	Y           float64       `json:"y"`
}

// Summary holds counters computed over the full unfiltered connection set,
// never just the bounded visible subset.
type Summary struct {
	TotalConns   int               `json:"total_conns"`
	ByState      map[ConnState]int `json:"by_state"`
	Suspicious   int               `json:"suspicious"`
	DistinctTags int               `json:"distinct_tags"`
}

// Graph is one aggregation result: a center node plus an ordered,
// size-bounded endpoint list. It is owned exclusively by the engine between
// refresh cycles and immutable to every other component once published.
type Graph struct {
	Center    string     `json:"center"`
	Endpoints []Endpoint `json:"endpoints"`
	Dropped   int        `json:"dropped"`
	Summary   Summary    `json:"summary"`
}
