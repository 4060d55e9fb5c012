package breaker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testConfig() Config {
	return Config{
		MaxConsecutiveFailures: 3,
		MaxDailyLoss:           decimal.NewFromInt(500),
		MinBalance:             decimal.NewFromInt(100),
		OpenDuration:           50 * time.Millisecond,
	}
}

func TestNewBreakerStartsClosed(t *testing.T) {
	t.Parallel()
	b := New(testConfig())
	if b.CurrentState() != Closed {
		t.Errorf("CurrentState() = %v, want Closed", b.CurrentState())
	}
	if !b.CanTrade() {
		t.Error("CanTrade() = false, want true for fresh Closed breaker")
	}
}

func TestTripsOnConsecutiveFailures(t *testing.T) {
	t.Parallel()
	b := New(testConfig())

	b.RecordFailure()
	b.RecordFailure()
	if b.CurrentState() != Closed {
		t.Fatalf("tripped early after 2 failures, want still Closed")
	}
	b.RecordFailure()
	if b.CurrentState() != Open {
		t.Errorf("CurrentState() = %v, want Open after 3rd consecutive failure", b.CurrentState())
	}
	if b.CanTrade() {
		t.Error("CanTrade() = true, want false while Open")
	}
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	t.Parallel()
	b := New(testConfig())

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess(decimal.NewFromInt(10))
	b.RecordFailure()
	b.RecordFailure()
	if b.CurrentState() != Closed {
		t.Errorf("CurrentState() = %v, want Closed (failure streak should have reset)", b.CurrentState())
	}
}

func TestTripsOnDailyLoss(t *testing.T) {
	t.Parallel()
	b := New(testConfig())

	b.RecordSuccess(decimal.NewFromInt(-500))
	if b.CurrentState() != Open {
		t.Errorf("CurrentState() = %v, want Open after daily loss threshold hit", b.CurrentState())
	}
}

func TestTripsOnLowBalance(t *testing.T) {
	t.Parallel()
	b := New(testConfig())

	b.RecordBalance(decimal.NewFromInt(50))
	if b.CurrentState() != Open {
		t.Errorf("CurrentState() = %v, want Open after low-balance report", b.CurrentState())
	}
}

func TestHalfOpenClosesOnSuccess(t *testing.T) {
	t.Parallel()
	b := New(testConfig())

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(60 * time.Millisecond)

	if !b.CanTrade() {
		t.Fatal("CanTrade() = false, want true to allow HalfOpen probe")
	}
	if b.CurrentState() != HalfOpen {
		t.Fatalf("CurrentState() = %v, want HalfOpen", b.CurrentState())
	}

	b.RecordSuccess(decimal.Zero)
	if b.CurrentState() != Closed {
		t.Errorf("CurrentState() = %v, want Closed after successful probe", b.CurrentState())
	}
}

func TestHalfOpenReopensOnFailure(t *testing.T) {
	t.Parallel()
	b := New(testConfig())

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(60 * time.Millisecond)

	if !b.CanTrade() {
		t.Fatal("CanTrade() = false, want true to allow HalfOpen probe")
	}

	b.RecordFailure()
	if b.CurrentState() != Open {
		t.Errorf("CurrentState() = %v, want Open after failed probe", b.CurrentState())
	}
}

func TestResetClearsState(t *testing.T) {
	t.Parallel()
	b := New(testConfig())

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	b.Reset()

	if b.CurrentState() != Closed {
		t.Errorf("CurrentState() = %v, want Closed after Reset", b.CurrentState())
	}
	if !b.DailyPnL().IsZero() {
		t.Errorf("DailyPnL() = %v, want 0 after Reset", b.DailyPnL())
	}
}
