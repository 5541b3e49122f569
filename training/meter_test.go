package training

import (
	"errors"
	"testing"
)

func TestAverageMeterUnweighted(t *testing.T) {
	m := NewAverageMeter()
	m.Update(3.0)
	m.Update(5.0)

	avg, err := m.Average()
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}
	if avg != 4.0 {
		t.Errorf("expected average 4.0, got %f", avg)
	}
}

func TestAverageMeterWeighted(t *testing.T) {
	m := NewAverageMeter()
	m.UpdateWeighted(2.0, 3)
	m.UpdateWeighted(8.0, 1)

	avg, err := m.Average()
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}
	if avg != 3.5 {
		t.Errorf("expected weighted average 3.5, got %f", avg)
	}
	if m.Count() != 4 {
		t.Errorf("expected count 4, got %f", m.Count())
	}
}

func TestAverageMeterEmpty(t *testing.T) {
	m := NewAverageMeter()
	if _, err := m.Average(); !errors.Is(err, ErrNoObservations) {
		t.Errorf("expected ErrNoObservations, got %v", err)
	}
}

func TestAverageMeterReset(t *testing.T) {
	m := NewAverageMeter()
	m.Update(10.0)
	m.Reset()

	if m.Count() != 0 {
		t.Errorf("expected zero count after reset, got %f", m.Count())
	}
	if _, err := m.Average(); !errors.Is(err, ErrNoObservations) {
		t.Errorf("expected ErrNoObservations after reset, got %v", err)
	}

	m.Update(1.0)
	avg, err := m.Average()
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}
	if avg != 1.0 {
		t.Errorf("expected average 1.0 after reset and update, got %f", avg)
	}
}
