package som

import (
	"math"
	"testing"
)

// TestDecayKinds verifies the decay functions are pure and hit the
// expected values
func TestDecayKinds(t *testing.T) {
	if v := DecayExpo.Apply(1.0, 0, 10); math.Abs(v-1.0) > 1e-9 {
		t.Errorf("expo at step 0 = %v, expected 1.0", v)
	}
	if v := DecayExpo.Apply(1.0, 10, 10); math.Abs(v-math.Exp(-1)) > 1e-9 {
		t.Errorf("expo at final step = %v, expected e^-1", v)
	}

	if v := DecayLinear.Apply(2.0, 5, 10); math.Abs(v-1.01) > 1e-9 {
		t.Errorf("linear mid decay = %v, expected 1.01", v)
	}
	// Linear never reaches zero: sigma 0 would blow up the Gaussian.
	if v := DecayLinear.Apply(1.0, 10, 10); v <= 0 {
		t.Errorf("linear at final step = %v, must stay positive", v)
	}

	// Purity: same arguments, same result.
	a := DecayExpo.Apply(0.3, 7, 40)
	b := DecayExpo.Apply(0.3, 7, 40)
	if a != b {
		t.Error("decay function is not pure")
	}
}

// TestDecayKindRoundTrip verifies the persisted names parse back
func TestDecayKindRoundTrip(t *testing.T) {
	for _, k := range []DecayKind{DecayExpo, DecayLinear} {
		parsed, err := ParseDecayKind(k.String())
		if err != nil {
			t.Fatalf("ParseDecayKind(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Errorf("round trip of %v gave %v", k, parsed)
		}
	}
	if _, err := ParseDecayKind("cosine"); err == nil {
		t.Error("unknown kind should fail to parse")
	}
}

// TestUpdateSchedule verifies the precomputed decay-event steps
func TestUpdateSchedule(t *testing.T) {
	// 100 batches, decay over the first half, 10 events:
	// every 5 batches up to batch 50.
	sched := newUpdateSchedule(100, 0.5, 10)

	if sched.total() != 10 {
		t.Fatalf("expected 10 events, got %d", sched.total())
	}
	for v := 5; v <= 50; v += 5 {
		if !sched.hit(v) {
			t.Errorf("expected an event at step %d", v)
		}
	}
	if sched.hit(0) || sched.hit(3) || sched.hit(55) {
		t.Error("unexpected event outside the schedule")
	}
}

// TestUpdateScheduleMinStep verifies the step size never drops below one
func TestUpdateScheduleMinStep(t *testing.T) {
	// More requested events than batches: one event per batch.
	sched := newUpdateSchedule(40, 1.0, 50)

	if sched.total() != 40 {
		t.Fatalf("expected 40 events, got %d", sched.total())
	}
	if !sched.hit(1) || !sched.hit(40) {
		t.Error("expected events at every batch from 1 to 40")
	}
}
