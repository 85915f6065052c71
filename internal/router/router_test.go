package router

import (
	"testing"

	"pm-sandbox/internal/config"
	"pm-sandbox/internal/decision"
	"pm-sandbox/internal/market"
	"pm-sandbox/internal/strategy"
)

// stubDecider 每次返回预设结果，并记录 Reset 调用。
type stubDecider struct {
	result   decision.Result
	resets   int
	decides  int
	lastTick market.Tick
}

func (s *stubDecider) Decide(tick market.Tick) decision.Result {
	s.decides++
	s.lastTick = tick
	return s.result
}

func (s *stubDecider) Reset() { s.resets++ }

func newTestRouter(result decision.Result) (*Router, *stubDecider) {
	stub := &stubDecider{result: result}
	r := New(
		stub,
		strategy.NewArb(config.ArbConfig{}),
		strategy.NewSniper(config.SniperConfig{}),
		nil,
	)
	return r, stub
}

func arbOpportunityTick() market.Tick {
	return market.Tick{PMAsk: 0.40, OPBid: 0.45}
}

func TestRouterOnTick_RoutesToChosenStrategy(t *testing.T) {
	r, _ := newTestRouter(decision.Result{
		Chosen:     decision.StrategyArb,
		RiskMode:   decision.RiskDefensive,
		Reason:     "test reason",
		Confidence: 0.9,
	})

	orders := r.OnTick(arbOpportunityTick())
	if len(orders) != 2 {
		t.Fatalf("expected arb order pair, got %d", len(orders))
	}

	for _, order := range orders {
		if order.Meta["routed_by"] != "router" {
			t.Errorf("missing routed_by, got %v", order.Meta["routed_by"])
		}
		if order.Meta["routing_mode"] != "ou_arb" {
			t.Errorf("routing_mode: got %v", order.Meta["routing_mode"])
		}
		if order.Meta["ai_reason"] != "test reason" {
			t.Errorf("ai_reason: got %v", order.Meta["ai_reason"])
		}
		if order.Meta["ai_risk_mode"] != "defensive" {
			t.Errorf("ai_risk_mode: got %v", order.Meta["ai_risk_mode"])
		}
		if order.Meta["ai_confidence"] != 0.9 {
			t.Errorf("ai_confidence: got %v", order.Meta["ai_confidence"])
		}
	}

	stats := r.RoutingStats()
	if stats.TotalTicks != 1 || stats.OuArbCount != 1 || stats.NoActionCount != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRouterOnTick_NoCrossFallback(t *testing.T) {
	// 决策选 sniper，但该 tick 只有套利机会：不换策略，直接不动作
	r, _ := newTestRouter(decision.Result{
		Chosen:     decision.StrategySniper,
		RiskMode:   decision.RiskAggressive,
		Confidence: 0.8,
	})

	orders := r.OnTick(arbOpportunityTick())
	if orders != nil {
		t.Fatalf("expected no action, got %v", orders)
	}

	stats := r.RoutingStats()
	if stats.NoActionCount != 1 || stats.SniperCount != 0 || stats.OuArbCount != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRouterOnTick_NoneAndUnknownStrategy(t *testing.T) {
	r, _ := newTestRouter(decision.Result{Chosen: decision.StrategyNone})
	if orders := r.OnTick(arbOpportunityTick()); orders != nil {
		t.Errorf("none strategy should give no orders")
	}

	r, _ = newTestRouter(decision.Result{Chosen: "momentum"})
	if orders := r.OnTick(arbOpportunityTick()); orders != nil {
		t.Errorf("unknown strategy should give no orders")
	}
	if stats := r.RoutingStats(); stats.NoActionCount != 1 {
		t.Errorf("unknown strategy should count as no action: %+v", stats)
	}
}

func TestRouterLastDecision(t *testing.T) {
	want := decision.Result{Chosen: decision.StrategyArb, RiskMode: decision.RiskNormal, Confidence: 0.7}
	r, _ := newTestRouter(want)

	if r.LastDecision() != nil {
		t.Fatalf("fresh router should have no decision yet")
	}

	r.OnTick(arbOpportunityTick())
	last := r.LastDecision()
	if last == nil || last.Chosen != want.Chosen || last.Confidence != want.Confidence {
		t.Errorf("last decision mismatch: %+v", last)
	}
}

func TestRouterReset(t *testing.T) {
	r, stub := newTestRouter(decision.Result{Chosen: decision.StrategyArb, Confidence: 0.9})
	r.OnTick(arbOpportunityTick())

	r.Reset()

	if stats := r.RoutingStats(); stats.TotalTicks != 0 {
		t.Errorf("stats should be zeroed after reset: %+v", stats)
	}
	if r.LastDecision() != nil {
		t.Errorf("last decision should be cleared after reset")
	}
	if stub.resets != 1 {
		t.Errorf("decider reset should propagate, got %d", stub.resets)
	}
}

func TestRouterIsOpportunity(t *testing.T) {
	r, _ := newTestRouter(decision.Result{Chosen: decision.StrategyArb})

	if !r.IsOpportunity(arbOpportunityTick()) {
		t.Errorf("arb opportunity should be reported")
	}
	if !r.IsOpportunity(market.Tick{BestAsk: 0.40}) {
		t.Errorf("sniper opportunity should be reported")
	}
	if r.IsOpportunity(market.Tick{}) {
		t.Errorf("empty tick should have no opportunity")
	}
}

func TestStatsPercentages(t *testing.T) {
	stats := Stats{TotalTicks: 4, OuArbCount: 1, SniperCount: 1, NoActionCount: 2}
	if stats.OuArbPct() != 25 || stats.SniperPct() != 25 || stats.NoActionPct() != 50 {
		t.Errorf("unexpected percentages: %f %f %f", stats.OuArbPct(), stats.SniperPct(), stats.NoActionPct())
	}

	empty := Stats{}
	if empty.OuArbPct() != 0 {
		t.Errorf("zero ticks should give 0 pct")
	}
}
