package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("conn refused")
	tests := []struct {
		name       string
		index      error
		source     error
		wantStatus Status
		wantIndex  CheckResult
		wantSource CheckResult
	}{
		{"all healthy", nil, nil, Healthy, CheckOK, CheckOK},
		{"index down", down, nil, Degraded, CheckError, CheckOK},
		{"source down", nil, down, Degraded, CheckOK, CheckError},
		{"everything down", down, down, Unhealthy, CheckError, CheckError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockPinger{err: tt.index}, &mockPinger{err: tt.source})
			r := svc.Check(context.Background())

			if r.Status != tt.wantStatus {
				t.Errorf("expected %q, got %q", tt.wantStatus, r.Status)
			}
			if r.Checks[ComponentIndex] != tt.wantIndex {
				t.Errorf("expected index %q, got %q", tt.wantIndex, r.Checks[ComponentIndex])
			}
			if r.Checks[ComponentSource] != tt.wantSource {
				t.Errorf("expected source %q, got %q", tt.wantSource, r.Checks[ComponentSource])
			}
		})
	}
}

func TestCheck_NilSource(t *testing.T) {
	svc := New(&mockPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[ComponentSource]; ok {
		t.Error("source check should not be present when source is nil")
	}
}

func TestCheck_IndexDownWithoutSource(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("timeout")}, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}
