package ws

import (
	"github.com/home-energy-foundry/hem0424/internal/engine"
	"github.com/home-energy-foundry/hem0424/pkg/logging"
)

// Bridge implements engine.Callback and broadcasts simulation progress to
// the hub. Every stride-th step is sent; the final step always is.
type Bridge struct {
	hub        *Hub
	log        *logging.Logger
	runID      string
	totalSteps int
	stride     int
}

// NewBridge creates a bridge for one run. stride < 1 sends every step.
func NewBridge(hub *Hub, log *logging.Logger, runID string, totalSteps, stride int) *Bridge {
	if stride < 1 {
		stride = 1
	}
	return &Bridge{hub: hub, log: log, runID: runID, totalSteps: totalSteps, stride: stride}
}

func (b *Bridge) OnStep(res engine.StepResult) {
	if res.Step%b.stride != 0 && res.Step != b.totalSteps-1 {
		return
	}
	msg, err := NewEnvelope(TypeStepResult, StepPayload{
		RunID:    b.runID,
		Progress: float64(res.Step+1) / float64(b.totalSteps),
		Result:   res,
	})
	if err != nil {
		b.log.Error("marshal step result", logging.Fields{"step": res.Step}, err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnFinish(results []engine.StepResult) {
	// The summary message is sent by the server after aggregation; the
	// per-step stream just ends here.
}
