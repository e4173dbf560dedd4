package som

import (
	"fmt"
	"math"
)

// DecayKind selects the schedule used to anneal the learning rate and
// the neighborhood radius. It is a tag rather than a function value so
// that save/load stays simple and exhaustive.
type DecayKind int

const (
	// DecayExpo decays exponentially: value * exp(-step/total).
	DecayExpo DecayKind = iota
	// DecayLinear decays linearly to a small floor:
	// value * (total-step)/total + 0.01.
	DecayLinear
)

func (k DecayKind) String() string {
	switch k {
	case DecayLinear:
		return "linear"
	default:
		return "expo"
	}
}

// ParseDecayKind converts the persisted name back into a kind.
func ParseDecayKind(s string) (DecayKind, error) {
	switch s {
	case "expo":
		return DecayExpo, nil
	case "linear":
		return DecayLinear, nil
	}
	return DecayExpo, fmt.Errorf("unknown decay kind %q", s)
}

// Apply evaluates the decay of value at step out of total steps.
// Pure: the same arguments always produce the same result.
func (k DecayKind) Apply(value float64, step, total int) float64 {
	if total <= 0 {
		return value
	}
	switch k {
	case DecayLinear:
		return value*float64(total-step)/float64(total) + 0.01
	default:
		return value * math.Exp(-float64(step)/float64(total))
	}
}

// updateSchedule precomputes the batch indices at which one annealed
// parameter (learning rate or neighborhood radius) steps down.
//
// With trainLen total batches, stopFrac the fraction of training over
// which the parameter keeps decaying and totalUpdates the requested
// number of decay events, events fire every
// max(floor(trainLen*stopFrac/totalUpdates), 1) batches until the stop
// point is passed.
type updateSchedule struct {
	steps map[int]struct{}
}

func newUpdateSchedule(trainLen int, stopFrac float64, totalUpdates int) updateSchedule {
	step := int(float64(trainLen) * stopFrac / float64(totalUpdates))
	if step < 1 {
		step = 1
	}
	stop := float64(trainLen) * stopFrac

	steps := make(map[int]struct{})
	for v := step; float64(v) < stop+float64(step); v += step {
		steps[v] = struct{}{}
	}
	return updateSchedule{steps: steps}
}

// hit reports whether a decay event fires at batch index idx.
func (u updateSchedule) hit(idx int) bool {
	_, ok := u.steps[idx]
	return ok
}

// total is the number of decay events, used as the step count handed to
// the decay function.
func (u updateSchedule) total() int {
	return len(u.steps)
}
