package client

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hubfetch/hubfetch/pkg/activity"
)

func respWithStatus(status int) *http.Response {
	return &http.Response{StatusCode: status}
}

func TestFlatDelayPolicy_ShouldRetry(t *testing.T) {
	policy := NewFlatDelayPolicy(DefaultConfig())

	tests := []struct {
		name     string
		err      error
		resp     *http.Response
		expected bool
	}{
		{name: "transport error", err: errors.New("connection reset"), resp: nil, expected: true},
		{name: "500 server error", resp: respWithStatus(500), expected: true},
		{name: "502 bad gateway", resp: respWithStatus(502), expected: true},
		{name: "503 unavailable", resp: respWithStatus(503), expected: true},
		{name: "403 forbidden lockout", resp: respWithStatus(403), expected: true},
		{name: "404 not found", resp: respWithStatus(404), expected: false},
		{name: "400 bad request", resp: respWithStatus(400), expected: false},
		{name: "301 redirect", resp: respWithStatus(301), expected: false},
		{name: "304 not modified", resp: respWithStatus(304), expected: false},
		{name: "429 too many requests", resp: respWithStatus(429), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldRetry(tt.err, tt.resp); got != tt.expected {
				t.Errorf("ShouldRetry() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFlatDelayPolicy_DelayFor(t *testing.T) {
	policy := FlatDelayPolicy{
		RetryDelay:     1 * time.Second,
		ForbiddenDelay: 3 * time.Minute,
	}

	tests := []struct {
		name         string
		err          error
		resp         *http.Response
		expectedWait time.Duration
		expectedKind activity.DelayKind
	}{
		{
			name:         "transport error gets flat retry delay",
			err:          errors.New("timeout"),
			expectedWait: 1 * time.Second,
			expectedKind: activity.DelayRetry,
		},
		{
			name:         "500 gets flat retry delay",
			resp:         respWithStatus(500),
			expectedWait: 1 * time.Second,
			expectedKind: activity.DelayRetry,
		},
		{
			name:         "403 gets forbidden delay",
			resp:         respWithStatus(403),
			expectedWait: 3 * time.Minute,
			expectedKind: activity.DelayForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wait, kind := policy.DelayFor(tt.err, tt.resp)
			if wait != tt.expectedWait {
				t.Errorf("DelayFor() wait = %v, want %v", wait, tt.expectedWait)
			}
			if kind != tt.expectedKind {
				t.Errorf("DelayFor() kind = %v, want %v", kind, tt.expectedKind)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		resp     *http.Response
		expected ErrorClass
	}{
		{name: "transport error", err: errors.New("eof"), expected: ErrorClassNetwork},
		{name: "500", resp: respWithStatus(500), expected: ErrorClassServer},
		{name: "403", resp: respWithStatus(403), expected: ErrorClassForbidden},
		{name: "404", resp: respWithStatus(404), expected: ErrorClassClient},
		{name: "301", resp: respWithStatus(301), expected: ErrorClassClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.resp, tt.err); got != tt.expected {
				t.Errorf("Classify() = %v, want %v", got, tt.expected)
			}
		})
	}
}
