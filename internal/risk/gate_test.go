package risk

import (
	"testing"

	"pm-sandbox/internal/config"
)

func enabledConfig() config.RiskConfig {
	return config.RiskConfig{
		Enabled:              true,
		MaxRunLoss:           -100,
		MaxPositionSize:      500,
		MaxConsecutiveLosses: 3,
	}
}

func TestGateCheck_DisabledPassesEverything(t *testing.T) {
	gate := NewGate(config.RiskConfig{Enabled: false}, nil)

	if ok, _ := gate.Check(1e9); !ok {
		t.Errorf("disabled gate should pass any notional")
	}
	gate.RecordOutcome(-1e9)
	if ok, _ := gate.Check(1); !ok {
		t.Errorf("disabled gate should ignore recorded losses")
	}
	if len(gate.Events()) != 0 {
		t.Errorf("disabled gate should record no events")
	}
}

func TestGateCheck_PositionSizeCap(t *testing.T) {
	gate := NewGate(enabledConfig(), nil)

	if ok, _ := gate.Check(500); !ok {
		t.Errorf("notional at cap should pass")
	}
	ok, reason := gate.Check(500.01)
	if ok || reason != "position_size_cap" {
		t.Errorf("oversized notional should be rejected with position_size_cap, got %v %q", ok, reason)
	}
	if gate.RejectedCount() != 1 {
		t.Errorf("rejected count: got %d want 1", gate.RejectedCount())
	}
}

func TestGateCheck_ConsecutiveLosses(t *testing.T) {
	gate := NewGate(enabledConfig(), nil)

	for i := 0; i < 3; i++ {
		gate.RecordOutcome(-1)
	}

	ok, reason := gate.Check(10)
	if ok || reason != "consecutive_losses" {
		t.Errorf("expected consecutive_losses rejection, got %v %q", ok, reason)
	}

	// 一笔盈利清零连续亏损计数
	gate.RecordOutcome(5)
	if ok, _ := gate.Check(10); !ok {
		t.Errorf("profit should reset the loss streak")
	}
}

func TestGateCheck_RunLossFloorHalts(t *testing.T) {
	gate := NewGate(enabledConfig(), nil)

	gate.RecordOutcome(-100)

	ok, reason := gate.Check(10)
	if ok || reason != "run_loss_floor" {
		t.Errorf("expected run_loss_floor rejection, got %v %q", ok, reason)
	}
	if !gate.Halted() {
		t.Errorf("gate should be halted after hitting the floor")
	}

	// 熔断后连小单也不放行
	if ok, _ := gate.Check(0.01); ok {
		t.Errorf("halted gate must reject everything")
	}

	// 事件流里应当有一条 halt 记录
	var halts int
	for _, event := range gate.Events() {
		if event.Type == EventHalt {
			halts++
		}
	}
	if halts != 1 {
		t.Errorf("expected exactly one halt event, got %d", halts)
	}
}

func TestGateRecordOutcome_Accumulates(t *testing.T) {
	gate := NewGate(enabledConfig(), nil)

	gate.RecordOutcome(10)
	gate.RecordOutcome(-4)
	if got := gate.RealizedPnl(); got != 6 {
		t.Errorf("realized pnl: got %f want 6", got)
	}

	types := make(map[EventType]int)
	for _, event := range gate.Events() {
		types[event.Type]++
	}
	if types[EventProfit] != 1 || types[EventLoss] != 1 {
		t.Errorf("unexpected event mix: %v", types)
	}
}

func TestGateReset(t *testing.T) {
	gate := NewGate(enabledConfig(), nil)

	gate.RecordOutcome(-100)
	gate.Check(10)

	gate.Reset()

	if gate.Halted() || gate.RejectedCount() != 0 || gate.RealizedPnl() != 0 {
		t.Errorf("reset should clear all run state")
	}
	if len(gate.Events()) != 0 {
		t.Errorf("reset should clear events, got %d", len(gate.Events()))
	}
	if ok, _ := gate.Check(10); !ok {
		t.Errorf("gate should pass again after reset")
	}
}
