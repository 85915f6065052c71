package decision

import "testing"

func TestResultValidate(t *testing.T) {
	valid := Result{Chosen: StrategyArb, RiskMode: RiskNormal, Confidence: 0.8}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid result rejected: %v", err)
	}

	none := Result{Chosen: StrategyNone, RiskMode: RiskDefensive, Confidence: 0}
	if err := none.Validate(); err != nil {
		t.Errorf("no-action result should be valid: %v", err)
	}

	if err := (Result{Chosen: "momentum", RiskMode: RiskNormal}).Validate(); err == nil {
		t.Errorf("unknown strategy should fail validation")
	}
	if err := (Result{Chosen: StrategyArb, RiskMode: "yolo"}).Validate(); err == nil {
		t.Errorf("unknown risk mode should fail validation")
	}
	if err := (Result{Chosen: StrategyArb, RiskMode: RiskNormal, Confidence: 1.2}).Validate(); err == nil {
		t.Errorf("confidence above 1 should fail validation")
	}
}

func TestParseStrategyID(t *testing.T) {
	if id, ok := ParseStrategyID("  OU_ARB "); !ok || id != StrategyArb {
		t.Errorf("case/whitespace normalization failed: %s %v", id, ok)
	}
	if id, ok := ParseStrategyID("Sniper"); !ok || id != StrategySniper {
		t.Errorf("expected sniper, got %s %v", id, ok)
	}
	if _, ok := ParseStrategyID("unknown"); ok {
		t.Errorf("unknown id should not parse")
	}
	if _, ok := ParseStrategyID(""); ok {
		t.Errorf("empty id should not parse")
	}
}

func TestParseRiskMode(t *testing.T) {
	for raw, want := range map[string]RiskMode{
		"defensive":  RiskDefensive,
		" NORMAL ":   RiskNormal,
		"Aggressive": RiskAggressive,
	} {
		if mode, ok := ParseRiskMode(raw); !ok || mode != want {
			t.Errorf("ParseRiskMode(%q) = %s %v, want %s", raw, mode, ok, want)
		}
	}
	if _, ok := ParseRiskMode("reckless"); ok {
		t.Errorf("unknown mode should not parse")
	}
}
