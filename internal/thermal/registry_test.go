package thermal

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_AddAndGet(t *testing.T) {
	r := NewRegistry()
	sched := newFakeScheduler()

	for _, name := range []string{"cpu", "battery", "skin"} {
		m, err := NewMonitor(Options{Name: name, Sensor: newStepSensor(value(30)), Scheduler: sched})
		if err != nil {
			t.Fatalf("NewMonitor(%q) error = %v", name, err)
		}
		if err := r.Add(m); err != nil {
			t.Fatalf("Add(%q) error = %v", name, err)
		}
	}

	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	if _, ok := r.Get("battery"); !ok {
		t.Error("Get(battery) not found")
	}
	if _, ok := r.Get("gpu"); ok {
		t.Error("Get(gpu) found an unregistered monitor")
	}

	list := r.List()
	want := []string{"cpu", "battery", "skin"}
	for i, m := range list {
		if m.Name() != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, m.Name(), want[i])
		}
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	sched := newFakeScheduler()

	a, _ := NewMonitor(Options{Name: "cpu", Sensor: newStepSensor(value(30)), Scheduler: sched})
	b, _ := NewMonitor(Options{Name: "cpu", Sensor: newStepSensor(value(30)), Scheduler: sched})

	if err := r.Add(a); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add(b); !errors.Is(err, ErrDuplicateMonitor) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicateMonitor", err)
	}
}

func TestRegistry_StopAll(t *testing.T) {
	r := NewRegistry()
	sched := newFakeScheduler()

	for _, name := range []string{"cpu", "skin"} {
		m, _ := NewMonitor(Options{Name: name, Sensor: newStepSensor(value(30)), Scheduler: sched})
		if err := m.Start(context.Background(), testProps()); err != nil {
			t.Fatalf("Start(%q) error = %v", name, err)
		}
		if err := r.Add(m); err != nil {
			t.Fatalf("Add(%q) error = %v", name, err)
		}
	}
	if len(sched.pending()) != 2 {
		t.Fatalf("pending = %d, want 2", len(sched.pending()))
	}

	if err := r.StopAll(); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}
	if len(sched.pending()) != 0 {
		t.Errorf("pending = %d after StopAll, want 0", len(sched.pending()))
	}
	for _, s := range r.Snapshots() {
		if s.Started || s.Enabled {
			t.Errorf("%s: started = %v, enabled = %v after StopAll", s.Name, s.Started, s.Enabled)
		}
	}
}
