package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/netgraph/internal/model"
)

// Predicate is one node of a rule's match tree. Leaf conditions set on the
// same node are ANDed together; All/Any/Not compose subtrees. Rules stay
// externally authorable while evaluation needs no reflection: the tree is
// walked against the fixed Connection shape.
type Predicate struct {
	All []Predicate `yaml:"all,omitempty"`
	Any []Predicate `yaml:"any,omitempty"`
	Not *Predicate  `yaml:"not,omitempty"`

	State         string   `yaml:"state,omitempty"`
	StateIn       []string `yaml:"state_in,omitempty"`
	RemotePortGTE *uint16  `yaml:"remote_port_gte,omitempty"`
	RemotePortLTE *uint16  `yaml:"remote_port_lte,omitempty"`
	LocalPortGTE  *uint16  `yaml:"local_port_gte,omitempty"`
	LocalPortLTE  *uint16  `yaml:"local_port_lte,omitempty"`
	Locality      string   `yaml:"locality,omitempty"`
	RepeatGTE     *int     `yaml:"repeat_gte,omitempty"`
}

// empty reports whether the node constrains nothing.
func (p *Predicate) empty() bool {
	return len(p.All) == 0 && len(p.Any) == 0 && p.Not == nil &&
		p.State == "" && len(p.StateIn) == 0 &&
		p.RemotePortGTE == nil && p.RemotePortLTE == nil &&
		p.LocalPortGTE == nil && p.LocalPortLTE == nil &&
		p.Locality == "" && p.RepeatGTE == nil
}

// Subject is the fixed-shape record a predicate tree is evaluated against:
// one connection plus the context the classifier has already derived.
type Subject struct {
	Conn     model.Connection
	Locality model.Locality
	// Repeats is the number of observed connections sharing the same
	// remote address in the current scan, this one included.
	Repeats int
}

func (p *Predicate) eval(s Subject) bool {
	for i := range p.All {
		if !p.All[i].eval(s) {
			return false
		}
	}
	if len(p.Any) > 0 {
		matched := false
		for i := range p.Any {
			if p.Any[i].eval(s) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if p.Not != nil && p.Not.eval(s) {
		return false
	}

	if p.State != "" && !strings.EqualFold(p.State, s.Conn.State.String()) {
		return false
	}
	if len(p.StateIn) > 0 {
		matched := false
		for _, st := range p.StateIn {
			if strings.EqualFold(st, s.Conn.State.String()) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if p.RemotePortGTE != nil && s.Conn.RemotePort < *p.RemotePortGTE {
		return false
	}
	if p.RemotePortLTE != nil && s.Conn.RemotePort > *p.RemotePortLTE {
		return false
	}
	if p.LocalPortGTE != nil && s.Conn.LocalPort < *p.LocalPortGTE {
		return false
	}
	if p.LocalPortLTE != nil && s.Conn.LocalPort > *p.LocalPortLTE {
		return false
	}
	if p.Locality != "" && !strings.EqualFold(p.Locality, s.Locality.String()) {
		return false
	}
	if p.RepeatGTE != nil && s.Repeats < *p.RepeatGTE {
		return false
	}
	return true
}

// Rule is one externally authored suspicion rule.
type Rule struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Severity    string    `yaml:"severity"`
	Tags        []string  `yaml:"tags"`
	Match       Predicate `yaml:"match"`
}

// Sev returns the parsed severity of the rule.
func (r *Rule) Sev() model.Severity {
	return model.ParseSeverity(r.Severity)
}

// RuleSet is a declarative collection of suspicion rules. The classifier
// is a pure evaluator of the set, never an author of heuristics.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a rule set from a YAML file. The returned set is always
// usable: on a missing or unparseable file it is empty, and the error is
// informational only - the pipeline runs with zero rules rather than fail.
func LoadRules(path string) (*RuleSet, error) {
	rs := &RuleSet{}
	if path == "" {
		return rs, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return rs, fmt.Errorf("read rules: %w", err)
	}
	if err := yaml.Unmarshal(b, rs); err != nil {
		return &RuleSet{}, fmt.Errorf("parse rules: %w", err)
	}
	return rs, nil
}

// Evaluate returns the IDs of every rule the connection matches, in rule
// order. Zero, one, or many rules may match; severity is not deduplicated
// here - callers pick the maximum across matches for display.
func (rs *RuleSet) Evaluate(s Subject) []string {
	var ids []string
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if r.Match.empty() {
			continue
		}
		if r.Match.eval(s) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// TagsFor collects the display tags and maximum severity across a set of
// matched rule IDs.
func (rs *RuleSet) TagsFor(ids []string) ([]string, model.Severity) {
	if len(ids) == 0 {
		return nil, model.SeverityLow
	}
	byID := make(map[string]*Rule, len(rs.Rules))
	for i := range rs.Rules {
		byID[rs.Rules[i].ID] = &rs.Rules[i]
	}

	seen := make(map[string]bool)
	var tags []string
	max := model.SeverityLow
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			continue
		}
		if r.Sev() > max {
			max = r.Sev()
		}
		for _, tag := range r.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags, max
}

func ptrU16(v uint16) *uint16 { return &v }
func ptrInt(v int) *int       { return &v }

// DefaultRules returns the built-in rule set used when no rules file is
// configured. It mirrors the stock detection set: high ephemeral remote
// ports on public endpoints, half-open handshakes, teardown pile-ups and
// connection fan-in to a single remote.
func DefaultRules() *RuleSet {
	return &RuleSet{Rules: []Rule{
		{
			ID:          "ephemeral-public",
			Name:        "High remote port to public endpoint",
			Description: "Outbound connection to an ephemeral port on a public address, a common reverse-shell shape.",
			Severity:    "high",
			Tags:        []string{"exfil", "reverse-shell"},
			Match: Predicate{
				State:         "ESTABLISHED",
				RemotePortGTE: ptrU16(30000),
				Locality:      "public",
			},
		},
		{
			ID:          "half-open",
			Name:        "Half-open handshake",
			Description: "Connection stuck mid-handshake; repeated occurrences suggest scanning or a dead peer.",
			Severity:    "medium",
			Tags:        []string{"scan"},
			Match: Predicate{
				StateIn: []string{"SYN_SENT", "SYN_RECV"},
			},
		},
		{
			ID:          "teardown-pileup",
			Name:        "Teardown pile-up",
			Description: "Many sockets lingering in close states toward one remote.",
			Severity:    "low",
			Tags:        []string{"churn"},
			Match: Predicate{
				StateIn:   []string{"CLOSE_WAIT", "LAST_ACK", "CLOSING"},
				RepeatGTE: ptrInt(3),
			},
		},
		{
			ID:          "fan-in",
			Name:        "Connection fan-in",
			Description: "Unusually many simultaneous connections to a single public remote.",
			Severity:    "critical",
			Tags:        []string{"beacon", "fan-in"},
			Match: Predicate{
				Locality:  "public",
				RepeatGTE: ptrInt(20),
			},
		},
	}}
}
