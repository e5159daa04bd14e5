package model

import (
	"testing"
	"time"
)

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s := &Session{ExpiresAt: now.Add(time.Hour)}
	if s.Expired(now) {
		t.Error("session before expiry should not be expired")
	}

	s = &Session{ExpiresAt: now.Add(-time.Hour)}
	if !s.Expired(now) {
		t.Error("session past expiry should be expired")
	}
}

func TestSession_Expired_ZeroExpiry_NeverExpires(t *testing.T) {
	s := &Session{}
	if s.Expired(time.Now()) {
		t.Error("session with zero expiry should not report expired")
	}
}
