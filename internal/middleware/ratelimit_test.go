package middleware

import (
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiterWithNow(2, time.Minute, func() time.Time { return now })

	if ok, _ := rl.Allow("ip /login"); !ok {
		t.Fatalf("expected first attempt to pass")
	}
	if ok, _ := rl.Allow("ip /login"); !ok {
		t.Fatalf("expected second attempt to pass")
	}
	ok, retryAfter := rl.Allow("ip /login")
	if ok {
		t.Fatalf("expected third attempt to be blocked")
	}
	if retryAfter != time.Minute {
		t.Fatalf("expected a full window of wait, got %v", retryAfter)
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := rl.Allow("ip /login"); !ok {
		t.Fatalf("expected attempt after window to pass")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiterWithNow(1, time.Minute, func() time.Time { return now })

	if ok, _ := rl.Allow("ip /register"); !ok {
		t.Fatalf("expected register attempt to pass")
	}
	if ok, _ := rl.Allow("ip /login"); !ok {
		t.Fatalf("expected login attempt to pass, routes count separately")
	}
	if ok, _ := rl.Allow("other /register"); !ok {
		t.Fatalf("expected other client to pass")
	}
}

func TestRateLimiter_RetryAfterShrinksWithinWindow(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiterWithNow(1, time.Minute, func() time.Time { return now })

	rl.Allow("ip /login")
	now = now.Add(40 * time.Second)
	ok, retryAfter := rl.Allow("ip /login")
	if ok {
		t.Fatalf("expected attempt to be blocked")
	}
	if retryAfter != 20*time.Second {
		t.Fatalf("expected 20s wait, got %v", retryAfter)
	}
}
