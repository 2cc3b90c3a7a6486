package oauth

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	pkce "fitgate/pkg/oauth"
)

func TestStateStore_BeginAndConsume(t *testing.T) {
	ss := NewStateStore(time.Hour, testingclock.NewFakeClock(epoch))

	req, err := ss.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if req.State == "" || req.CodeChallenge == "" {
		t.Fatal("Expected non-empty state and challenge")
	}
	if req.CodeChallengeMethod != "S256" {
		t.Errorf("Expected S256, got %s", req.CodeChallengeMethod)
	}
	if len(req.State) < 43 {
		t.Errorf("Expected at least 32 bytes of entropy in state, got %d chars", len(req.State))
	}

	verifier, err := ss.Consume(req.State)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if got := pkce.ChallengeFromVerifier(verifier); got != req.CodeChallenge {
		t.Errorf("Verifier does not match challenge: %s != %s", got, req.CodeChallenge)
	}
}

func TestStateStore_ConsumeIsSingleUse(t *testing.T) {
	ss := NewStateStore(time.Hour, testingclock.NewFakeClock(epoch))

	req, err := ss.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if _, err := ss.Consume(req.State); err != nil {
		t.Fatalf("First consume should succeed: %v", err)
	}
	if _, err := ss.Consume(req.State); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("Second consume should return ErrStateNotFound, got %v", err)
	}
}

func TestStateStore_ConsumeUnknown(t *testing.T) {
	ss := NewStateStore(time.Hour, testingclock.NewFakeClock(epoch))

	if _, err := ss.Consume("never-issued"); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("Expected ErrStateNotFound, got %v", err)
	}
}

func TestStateStore_ConsumeExpired(t *testing.T) {
	clk := testingclock.NewFakeClock(epoch)
	ss := NewStateStore(time.Hour, clk)

	req, err := ss.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	clk.Step(61 * time.Minute)

	if _, err := ss.Consume(req.State); !errors.Is(err, ErrStateExpired) {
		t.Errorf("Expected ErrStateExpired, got %v", err)
	}
	if ss.Len() != 0 {
		t.Errorf("Expired entry should still be removed, %d left", ss.Len())
	}
	if _, err := ss.Consume(req.State); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("Expected ErrStateNotFound after expired consume, got %v", err)
	}
}

func TestStateStore_Sweep(t *testing.T) {
	clk := testingclock.NewFakeClock(epoch)
	ss := NewStateStore(time.Hour, clk)

	for i := 0; i < 3; i++ {
		if _, err := ss.Begin(); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
	}
	clk.Step(30 * time.Minute)
	fresh, err := ss.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if n := ss.Sweep(); n != 0 {
		t.Errorf("Expected nothing swept yet, got %d", n)
	}

	clk.Step(31 * time.Minute)
	if n := ss.Sweep(); n != 3 {
		t.Errorf("Expected 3 swept, got %d", n)
	}
	if _, err := ss.Consume(fresh.State); err != nil {
		t.Errorf("Unexpired entry should survive the sweep: %v", err)
	}
}

func TestStateStore_ConcurrentConsume(t *testing.T) {
	ss := NewStateStore(time.Hour, testingclock.NewFakeClock(epoch))

	req, err := ss.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	var successes atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ss.Consume(req.State); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 {
		t.Errorf("Expected exactly one successful consume, got %d", successes.Load())
	}
}

func TestStateStore_StopIsIdempotent(t *testing.T) {
	ss := NewStateStore(0, nil)
	ss.Start()
	ss.Stop()
	ss.Stop()
}
