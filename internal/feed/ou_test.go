package feed

import (
	"testing"

	"pm-sandbox/internal/config"
)

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{
		Seed:         42,
		Ticks:        200,
		BasePrice:    0.5,
		Theta:        0.05,
		Sigma:        0.01,
		LagWeight:    0.3,
		SpreadOffset: 0.01,
	}
}

func TestOUGenerator_EmitsExactCount(t *testing.T) {
	g := NewOUGenerator(testFeedConfig())

	count := 0
	for {
		_, ok := g.Next()
		if !ok {
			break
		}
		count++
	}
	if count != 200 {
		t.Errorf("tick count: got %d want 200", count)
	}

	// 耗尽后持续返回 false
	if _, ok := g.Next(); ok {
		t.Errorf("exhausted generator should keep returning false")
	}
}

func TestOUGenerator_DeterministicForSeed(t *testing.T) {
	first := NewOUGenerator(testFeedConfig()).GenerateAll()
	second := NewOUGenerator(testFeedConfig()).GenerateAll()

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].MidPrice != second[i].MidPrice ||
			first[i].PMAsk != second[i].PMAsk ||
			first[i].OPBid != second[i].OPBid {
			t.Fatalf("tick %d differs between identically seeded runs", i)
		}
	}

	cfg := testFeedConfig()
	cfg.Seed = 43
	other := NewOUGenerator(cfg).GenerateAll()
	same := true
	for i := range first {
		if first[i].MidPrice != other[i].MidPrice {
			same = false
			break
		}
	}
	if same {
		t.Errorf("different seeds should produce different paths")
	}
}

func TestOUGenerator_PriceBounds(t *testing.T) {
	cfg := testFeedConfig()
	cfg.Sigma = 0.2 // 大波动逼近边界
	ticks := NewOUGenerator(cfg).GenerateAll()

	for i, tick := range ticks {
		for _, p := range []float64{tick.PMAsk, tick.PMBid, tick.OPAsk, tick.OPBid, tick.BestAsk, tick.BestBid, tick.MidPrice} {
			if p < 0.01-1e-12 || p > 0.99+1e-12 {
				t.Fatalf("tick %d price %f out of bounds", i, p)
			}
		}
	}
}

func TestOUGenerator_QuoteShape(t *testing.T) {
	ticks := NewOUGenerator(testFeedConfig()).GenerateAll()

	for i, tick := range ticks {
		if tick.PMAsk < tick.PMBid {
			t.Fatalf("tick %d pm ask %f below bid %f", i, tick.PMAsk, tick.PMBid)
		}
		if tick.OPAsk < tick.OPBid {
			t.Fatalf("tick %d op ask %f below bid %f", i, tick.OPAsk, tick.OPBid)
		}
		if tick.Timestamp.IsZero() {
			t.Fatalf("tick %d missing timestamp", i)
		}
	}
}

func TestCloses_ExtractsMarkPrices(t *testing.T) {
	ticks := NewOUGenerator(testFeedConfig()).GenerateAll()
	closes := Closes(ticks)

	if len(closes) != len(ticks) {
		t.Fatalf("length mismatch: %d vs %d", len(closes), len(ticks))
	}
	for i := range closes {
		if closes[i] != ticks[i].MarkPrice() {
			t.Fatalf("close %d mismatch", i)
		}
	}
}
