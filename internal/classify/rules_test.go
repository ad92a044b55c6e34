package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/user/netgraph/internal/model"
)

func established(remote string, remotePort uint16) Subject {
	c := model.Connection{RemoteAddr: remote, RemotePort: remotePort, State: model.StateEstablished}
	return Subject{Conn: c, Locality: Locality(c), Repeats: 1}
}

func TestEvaluateMatchesMultipleRules(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		{ID: "a", Severity: "low", Tags: []string{"t1"}, Match: Predicate{State: "ESTABLISHED"}},
		{ID: "b", Severity: "high", Tags: []string{"t2"}, Match: Predicate{RemotePortGTE: ptrU16(40000)}},
		{ID: "c", Severity: "critical", Match: Predicate{State: "LISTEN"}},
	}}

	ids := rs.Evaluate(established("8.8.8.8", 44444))
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids = %v, want [a b]", ids)
	}

	tags, max := rs.TagsFor(ids)
	if max != model.SeverityHigh {
		t.Errorf("max severity = %v, want high", max)
	}
	if len(tags) != 2 {
		t.Errorf("tags = %v, want two distinct tags", tags)
	}
}

func TestEvaluateNoMatch(t *testing.T) {
	rs := DefaultRules()
	s := established("192.168.1.10", 443)
	if ids := rs.Evaluate(s); len(ids) != 0 {
		t.Fatalf("expected no matches for a private https connection, got %v", ids)
	}
}

func TestEmptyMatchNeverFires(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{{ID: "empty", Severity: "critical"}}}
	if ids := rs.Evaluate(established("8.8.8.8", 443)); len(ids) != 0 {
		t.Fatalf("rule with empty match tree fired: %v", ids)
	}
}

func TestPredicateTree(t *testing.T) {
	// (public AND remote >= 30000) OR repeat >= 10, but never loopback.
	p := Predicate{
		Any: []Predicate{
			{Locality: "public", RemotePortGTE: ptrU16(30000)},
			{RepeatGTE: ptrInt(10)},
		},
		Not: &Predicate{Locality: "loopback"},
	}

	pub := established("8.8.8.8", 44444)
	if !p.eval(pub) {
		t.Error("public high-port connection should match")
	}

	repeat := established("192.168.1.9", 443)
	repeat.Repeats = 12
	if !p.eval(repeat) {
		t.Error("repeated private connection should match via any-branch")
	}

	loop := established("127.0.0.1", 44444)
	loop.Repeats = 50
	if p.eval(loop) {
		t.Error("loopback connection must be excluded by not-branch")
	}

	low := established("8.8.8.8", 443)
	if p.eval(low) {
		t.Error("public low-port single connection should not match")
	}
}

func TestPredicateStateIn(t *testing.T) {
	p := Predicate{StateIn: []string{"SYN_SENT", "SYN_RECV"}}

	syn := Subject{Conn: model.Connection{State: model.StateSynSent}}
	if !p.eval(syn) {
		t.Error("SYN_SENT should match state_in")
	}
	est := Subject{Conn: model.Connection{State: model.StateEstablished}}
	if p.eval(est) {
		t.Error("ESTABLISHED should not match state_in")
	}
}

func TestLoadRulesYAML(t *testing.T) {
	content := `rules:
  - id: beacon
    name: Beaconing
    description: Repeated connections to one public remote.
    severity: critical
    tags: [beacon]
    match:
      locality: public
      repeat_gte: 5
  - id: shell
    severity: high
    match:
      any:
        - remote_port_gte: 30000
        - state: SYN_SENT
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rs, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rs.Rules) != 2 {
		t.Fatalf("loaded %d rules, want 2", len(rs.Rules))
	}
	if rs.Rules[0].Sev() != model.SeverityCritical {
		t.Errorf("severity = %v, want critical", rs.Rules[0].Sev())
	}

	s := established("8.8.8.8", 443)
	s.Repeats = 7
	ids := rs.Evaluate(s)
	if len(ids) != 1 || ids[0] != "beacon" {
		t.Errorf("ids = %v, want [beacon]", ids)
	}
}

func TestLoadRulesDegradesToEmpty(t *testing.T) {
	rs, err := LoadRules("/nonexistent/rules.yaml")
	if err == nil {
		t.Error("expected informational error for missing file")
	}
	if rs == nil || len(rs.Rules) != 0 {
		t.Fatal("missing rules file must yield a usable empty set")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("rules: {not a list"), 0644); err != nil {
		t.Fatal(err)
	}
	rs, err = LoadRules(bad)
	if err == nil {
		t.Error("expected informational error for unparseable file")
	}
	if rs == nil || len(rs.Rules) != 0 {
		t.Fatal("unparseable rules file must yield a usable empty set")
	}

	// Zero rules still evaluate cleanly.
	if ids := rs.Evaluate(established("8.8.8.8", 44444)); ids != nil {
		t.Errorf("empty set matched %v", ids)
	}
}
