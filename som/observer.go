package som

import (
	"log"
)

// TrainEvent describes one point in a training run.
type TrainEvent struct {
	Type         string // "epoch" or "param_update"
	Epoch        int
	NumEpochs    int
	Step         int // cumulative batch index
	Sigma        float64
	LearningRate float64
}

// Observer receives training progress events. Observers are side-effect
// only: nothing they do feeds back into the run.
type Observer interface {
	OnTrainEvent(event TrainEvent)
}

// notifyObserver sends an event if an observer is configured.
func notifyObserver(obs Observer, event TrainEvent) {
	if obs == nil {
		return
	}
	obs.OnTrainEvent(event)
}

// ConsoleObserver logs one line per epoch and parameter update.
type ConsoleObserver struct{}

// OnTrainEvent implements Observer.
func (ConsoleObserver) OnTrainEvent(event TrainEvent) {
	switch event.Type {
	case "epoch":
		log.Printf("epoch %d of %d", event.Epoch, event.NumEpochs)
	case "param_update":
		log.Printf("step %d: sigma %.4f, learning rate %.4f",
			event.Step, event.Sigma, event.LearningRate)
	}
}
