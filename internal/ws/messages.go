package ws

import (
	"encoding/json"

	"github.com/home-energy-foundry/hem0424/internal/aggregate"
	"github.com/home-energy-foundry/hem0424/internal/engine"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Server -> Client message types.
const (
	TypeRunStarted  = "run:started"
	TypeStepResult  = "run:step"
	TypeRunFinished = "run:finished"
	TypeRunError    = "run:error"
)

// RunStartedPayload announces a new simulation run.
type RunStartedPayload struct {
	RunID      string   `json:"run_id"`
	Zones      []string `json:"zones"`
	StepHours  float64  `json:"step_hours"`
	TotalSteps int      `json:"total_steps"`
}

// StepPayload carries one step's results together with completion
// progress.
type StepPayload struct {
	RunID    string            `json:"run_id"`
	Progress float64           `json:"progress"` // 0..1
	Result   engine.StepResult `json:"result"`
}

// RunFinishedPayload delivers the annual summary at the end of a run.
type RunFinishedPayload struct {
	RunID   string                   `json:"run_id"`
	Summary *aggregate.AnnualSummary `json:"summary"`
}

// RunErrorPayload reports a run that halted with an error.
type RunErrorPayload struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// NewEnvelope marshals a typed message.
func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
