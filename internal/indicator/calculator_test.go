package indicator

import (
	"math"
	"testing"
)

func TestCompute_RequiresMinLength(t *testing.T) {
	calc := NewCalculator()
	if _, err := calc.Compute("test", make([]float64, MinLen-1)); err == nil {
		t.Errorf("series shorter than %d should fail", MinLen)
	}
}

func TestCompute_TrendDirection(t *testing.T) {
	calc := NewCalculator()

	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = 0.30 + 0.005*float64(i)
	}

	result, err := calc.Compute("up", rising)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if result.EMA12 <= result.EMA26 {
		t.Errorf("uptrend should have fast EMA above slow: %f vs %f", result.EMA12, result.EMA26)
	}
	if result.RSI <= 50 {
		t.Errorf("steady uptrend RSI should exceed 50, got %f", result.RSI)
	}
	if result.Close != rising[len(rising)-1] {
		t.Errorf("close mismatch: %f", result.Close)
	}
}

func TestCompute_CachesByKey(t *testing.T) {
	calc := NewCalculator()

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 0.5 + 0.001*float64(i)
	}

	first, err := calc.Compute("cache", closes)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	second, err := calc.Compute("cache", closes)
	if err != nil {
		t.Fatalf("second Compute returned error: %v", err)
	}
	if first != second {
		t.Errorf("identical input should hit the cache and return equal results")
	}
}

func TestBollingerPosition_WithinUnitRange(t *testing.T) {
	calc := NewCalculator()

	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 0.5 + 0.05*math.Sin(float64(i)/5)
	}

	result, err := calc.Compute("wave", closes)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	pos := result.Bollinger.Position
	if pos < 0 || pos > 1 {
		t.Errorf("bollinger position should be clamped to [0,1], got %f", pos)
	}
	if result.Bollinger.Upper < result.Bollinger.Lower {
		t.Errorf("upper band below lower band: %f < %f", result.Bollinger.Upper, result.Bollinger.Lower)
	}
}

func TestSeriesHelpers(t *testing.T) {
	values := []float64{1, 2, 3}

	if Last(values) != 3 {
		t.Errorf("Last: got %f", Last(values))
	}
	if Prev(values) != 2 {
		t.Errorf("Prev: got %f", Prev(values))
	}
	if !math.IsNaN(Last(nil)) || !math.IsNaN(Prev([]float64{1})) {
		t.Errorf("empty inputs should give NaN")
	}

	tail := SliceTail(values, 2)
	if len(tail) != 2 || tail[0] != 2 || tail[1] != 3 {
		t.Errorf("SliceTail: got %v", tail)
	}
	if tail := SliceTail(values, 10); len(tail) != 3 {
		t.Errorf("oversized tail should return full copy, got %v", tail)
	}

	if SafeDivide(1, 0) != 0 {
		t.Errorf("division by zero should give 0")
	}
	if SafeDivide(6, 3) != 2 {
		t.Errorf("SafeDivide: got %f", SafeDivide(6, 3))
	}
}
