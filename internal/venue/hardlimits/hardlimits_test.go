package hardlimits

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestCheckPassesWithinLimits(t *testing.T) {
	t.Parallel()
	err := Check(d("100"), d("1000"), d("10000"))
	if err != nil {
		t.Errorf("Check() = %v, want nil", err)
	}
}

func TestCheckRejectsOversizedOrder(t *testing.T) {
	t.Parallel()
	err := Check(d("10001"), d("100"), d("100"))
	var v Violation
	if !errors.As(err, &v) {
		t.Fatalf("Check() error = %v, want Violation", err)
	}
}

func TestCheckRejectsExcessiveNotional(t *testing.T) {
	t.Parallel()
	err := Check(d("10"), d("5001"), d("5001"))
	if err == nil {
		t.Fatal("Check() = nil, want violation for per-order notional")
	}
}

func TestCheckRejectsDailyNotionalBreach(t *testing.T) {
	t.Parallel()
	err := Check(d("10"), d("1000"), d("50001"))
	if err == nil {
		t.Fatal("Check() = nil, want violation for daily notional")
	}
}

func TestClampPriceRoundsDownToTick(t *testing.T) {
	t.Parallel()
	got := ClampPrice(d("0.537"), d("0.01"))
	if !got.Equal(d("0.53")) {
		t.Errorf("ClampPrice() = %v, want 0.53", got)
	}
}

func TestClampPriceZeroTickIsNoOp(t *testing.T) {
	t.Parallel()
	got := ClampPrice(d("0.537"), decimal.Zero)
	if !got.Equal(d("0.537")) {
		t.Errorf("ClampPrice() = %v, want unchanged 0.537", got)
	}
}
