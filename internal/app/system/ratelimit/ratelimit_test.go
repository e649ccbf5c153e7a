package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowAndReset(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Close()

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Error("third request should be limited")
	}
	if l.Remaining("a") != 0 {
		t.Errorf("Remaining: got %d, want 0", l.Remaining("a"))
	}
	if !l.Allow("b") {
		t.Error("other key should be independent")
	}
	l.Reset("a")
	if !l.Allow("a") {
		t.Error("reset key should pass")
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Close()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("second request in window should be limited")
	}
	now = now.Add(2 * time.Minute)
	if !l.Allow("k") {
		t.Error("request after window should pass")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded", "1.2.3.4, 10.0.0.1", "", "9.9.9.9:1", "1.2.3.4"},
		{"real ip", "", "5.6.7.8", "9.9.9.9:1", "5.6.7.8"},
		{"remote", "", "", "9.9.9.9:1234", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter_PerEmail(t *testing.T) {
	ll := NewLoginLimiter(10)
	defer ll.Close()
	r := httptest.NewRequest("POST", "/api/users/login", nil)

	for i := 0; i < 5; i++ {
		if ok, _ := ll.Check(r, "a@example.com"); !ok {
			t.Fatalf("attempt %d blocked", i+1)
		}
	}
	if ok, msg := ll.Check(r, "A@example.com "); ok || msg == "" {
		t.Error("sixth attempt for same email should be blocked")
	}
	ll.ResetEmail("a@example.com")
	if ok, _ := ll.Check(r, "a@example.com"); !ok {
		t.Error("attempt after reset should pass")
	}
}
