package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hubfetch/hubfetch/pkg/activity"
)

func quotaHeaders(remaining int, resetAt time.Time) http.Header {
	h := http.Header{}
	h.Set(HeaderRemaining, strconv.Itoa(remaining))
	h.Set(HeaderReset, strconv.FormatInt(resetAt.Unix(), 10))
	return h
}

func TestParseQuota(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	quota, ok, err := ParseQuota(quotaHeaders(42, reset))
	if err != nil {
		t.Fatalf("ParseQuota() error = %v", err)
	}
	if !ok {
		t.Fatal("ParseQuota() ok = false, want true")
	}
	if quota.Remaining != 42 {
		t.Errorf("Remaining = %d, want 42", quota.Remaining)
	}
	if !quota.ResetAt.Equal(reset) {
		t.Errorf("ResetAt = %v, want %v", quota.ResetAt, reset)
	}
}

func TestParseQuota_MissingHeader(t *testing.T) {
	_, ok, err := ParseQuota(http.Header{})
	if err != nil {
		t.Fatalf("ParseQuota() error = %v", err)
	}
	if ok {
		t.Error("ParseQuota() ok = true for missing headers, want false")
	}
}

func TestParseQuota_Malformed(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderRemaining, "not-a-number")

	_, _, err := ParseQuota(h)
	if err == nil {
		t.Error("ParseQuota() error = nil for malformed header, want error")
	}
}

func TestGovernor_SleepFor_MinimumTwoSeconds(t *testing.T) {
	g := NewGovernor(500, true, true, zerolog.Nop())

	tests := []struct {
		name    string
		resetAt time.Time
	}{
		{name: "reset in the past", resetAt: time.Now().Add(-1 * time.Minute)},
		{name: "reset right now", resetAt: time.Now()},
		{name: "reset in one second", resetAt: time.Now().Add(1 * time.Second)},
		{name: "zero reset instant", resetAt: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.SleepFor(Quota{ResetAt: tt.resetAt}); got < MinSleep {
				t.Errorf("SleepFor() = %v, want >= %v", got, MinSleep)
			}
		})
	}
}

func TestGovernor_SleepFor_UsesResetInstant(t *testing.T) {
	g := NewGovernor(500, true, true, zerolog.Nop())
	reset := time.Now().Add(10 * time.Minute)

	got := g.SleepFor(Quota{ResetAt: reset})
	if got < 9*time.Minute || got > 11*time.Minute {
		t.Errorf("SleepFor() = %v, want roughly 10m", got)
	}
}

func TestGovernor_Throttle_BelowFloorRecordsDelay(t *testing.T) {
	g := NewGovernor(500, true, true, zerolog.Nop())
	rec := &activity.Record{}

	err := g.Throttle(context.Background(), quotaHeaders(499, time.Now().Add(-1*time.Hour)), rec)
	if err != nil {
		t.Fatalf("Throttle() error = %v", err)
	}
	if rec.RateLimitDelay < MinSleep {
		t.Errorf("RateLimitDelay = %v, want >= %v", rec.RateLimitDelay, MinSleep)
	}
}

func TestGovernor_Throttle_AtFloorNoDelay(t *testing.T) {
	g := NewGovernor(500, true, true, zerolog.Nop())
	rec := &activity.Record{}

	if err := g.Throttle(context.Background(), quotaHeaders(500, time.Now()), rec); err != nil {
		t.Fatalf("Throttle() error = %v", err)
	}
	if rec.RateLimitDelay != 0 {
		t.Errorf("RateLimitDelay = %v, want 0 at the floor", rec.RateLimitDelay)
	}
}

func TestGovernor_Throttle_DisabledNeverRecords(t *testing.T) {
	g := NewGovernor(500, false, true, zerolog.Nop())
	rec := &activity.Record{}

	if err := g.Throttle(context.Background(), quotaHeaders(1, time.Now()), rec); err != nil {
		t.Fatalf("Throttle() error = %v", err)
	}
	if rec.RateLimitDelay != 0 {
		t.Errorf("RateLimitDelay = %v, want 0 when disabled", rec.RateLimitDelay)
	}
}

func TestGovernor_Throttle_MissingHeadersNoDelay(t *testing.T) {
	g := NewGovernor(500, true, true, zerolog.Nop())
	rec := &activity.Record{}

	if err := g.Throttle(context.Background(), http.Header{}, rec); err != nil {
		t.Fatalf("Throttle() error = %v", err)
	}
	if rec.RateLimitDelay != 0 {
		t.Errorf("RateLimitDelay = %v, want 0 without quota headers", rec.RateLimitDelay)
	}
}

func TestGovernor_Throttle_MalformedHeadersIgnored(t *testing.T) {
	g := NewGovernor(500, true, true, zerolog.Nop())
	rec := &activity.Record{}

	h := http.Header{}
	h.Set(HeaderRemaining, "banana")

	if err := g.Throttle(context.Background(), h, rec); err != nil {
		t.Fatalf("Throttle() error = %v, want nil for malformed headers", err)
	}
}

func TestGovernor_Throttle_TestModeSkipsSleep(t *testing.T) {
	g := NewGovernor(500, true, true, zerolog.Nop())
	rec := &activity.Record{}

	start := time.Now()
	if err := g.Throttle(context.Background(), quotaHeaders(0, time.Now().Add(1*time.Hour)), rec); err != nil {
		t.Fatalf("Throttle() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 1*time.Second {
		t.Errorf("Throttle() slept %v in test mode, want no sleep", elapsed)
	}
	if rec.RateLimitDelay < 59*time.Minute {
		t.Errorf("RateLimitDelay = %v, want ~1h recorded despite skipped sleep", rec.RateLimitDelay)
	}
}

func TestGovernor_Throttle_ContextCancelled(t *testing.T) {
	g := NewGovernor(500, true, false, zerolog.Nop())
	rec := &activity.Record{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Throttle(ctx, quotaHeaders(0, time.Now().Add(1*time.Hour)), rec)
	if err == nil {
		t.Error("Throttle() error = nil with cancelled context, want context error")
	}
}

func TestNewGovernor_FloorFallback(t *testing.T) {
	g := NewGovernor(0, true, true, zerolog.Nop())
	if g.Floor != DefaultTokenFloor {
		t.Errorf("Floor = %d, want %d", g.Floor, DefaultTokenFloor)
	}
}
