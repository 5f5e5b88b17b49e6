package monitoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/edera-run/workflowd/internal/serialize"
)

// taskStateJSON is TaskState's wire shape: Agents serializes as a
// sorted list rather than a map, matching spec §6's "sets as lists"
// serialization rule.
type taskStateJSON struct {
	Name      string               `json:"name"`
	Phony     bool                 `json:"phony"`
	Completed bool                 `json:"completed"`
	Stale     bool                 `json:"stale"`
	Agents    []string             `json:"agents"`
	Runs      map[string]time.Time `json:"runs,omitempty"`
	Failures  map[string]time.Time `json:"failures,omitempty"`
	Span      *[2]time.Time        `json:"span,omitempty"`
	Baggage   map[string]string    `json:"baggage,omitempty"`
}

func (s TaskState) MarshalJSON() ([]byte, error) {
	agents := make([]string, 0, len(s.Agents))
	for a := range s.Agents {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	return json.Marshal(taskStateJSON{
		Name:      s.Name,
		Phony:     s.Phony,
		Completed: s.Completed,
		Stale:     s.Stale,
		Agents:    agents,
		Runs:      s.Runs,
		Failures:  s.Failures,
		Span:      s.Span,
		Baggage:   s.Baggage,
	})
}

func (s *TaskState) UnmarshalJSON(data []byte) error {
	var aux taskStateJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Name = aux.Name
	s.Phony = aux.Phony
	s.Completed = aux.Completed
	s.Stale = aux.Stale
	s.Agents = make(map[string]struct{}, len(aux.Agents))
	for _, a := range aux.Agents {
		s.Agents[a] = struct{}{}
	}
	s.Runs = aux.Runs
	s.Failures = aux.Failures
	s.Span = aux.Span
	s.Baggage = aux.Baggage
	return nil
}

const (
	classCore             = "MonitoringSnapshotCore"
	classPayload          = "TaskPayload"
	classCheckpoint       = "MonitorCheckpoint"
	classWorkflowUpdate   = "WorkflowUpdate"
	classTaskStatusUpdate = "TaskStatusUpdate"
	classTaskLogUpdate    = "TaskLogUpdate"
)

// EncodeCore serializes core for storage under the "core" key.
func EncodeCore(core *Core) (string, error) { return serialize.Wrap(classCore, core) }

// DecodeCore parses a "core" record back into a Core.
func DecodeCore(data string) (*Core, error) {
	core := NewCore()
	if err := serialize.Into(data, classCore, core); err != nil {
		return nil, err
	}
	return core, nil
}

// EncodePayload serializes payload for storage under a "payload/<alias>" key.
func EncodePayload(payload *TaskPayload) (string, error) {
	return serialize.Wrap(classPayload, payload)
}

// DecodePayload parses a "payload/<alias>" record back into a TaskPayload.
func DecodePayload(data string) (*TaskPayload, error) {
	payload := &TaskPayload{}
	if err := serialize.Into(data, classPayload, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// EncodeCheckpoint serializes checkpoint for storage under the "checkpoint" key.
func EncodeCheckpoint(checkpoint *Checkpoint) (string, error) {
	return serialize.Wrap(classCheckpoint, checkpoint)
}

// DecodeCheckpoint parses a "checkpoint" record back into a Checkpoint.
func DecodeCheckpoint(data string) (*Checkpoint, error) {
	checkpoint := NewCheckpoint()
	if err := serialize.Into(data, classCheckpoint, checkpoint); err != nil {
		return nil, err
	}
	return checkpoint, nil
}

// EncodeUpdate serializes update for storage under an "update/<agent>" key.
func EncodeUpdate(update Update) (string, error) {
	switch u := update.(type) {
	case WorkflowUpdate:
		return serialize.Wrap(classWorkflowUpdate, u)
	case TaskStatusUpdate:
		return serialize.Wrap(classTaskStatusUpdate, u)
	case TaskLogUpdate:
		return serialize.Wrap(classTaskLogUpdate, u)
	default:
		return "", fmt.Errorf("monitoring: unknown update type %T", update)
	}
}

// DecodeUpdate parses an "update/<agent>" record back into the concrete
// Update it was encoded from.
func DecodeUpdate(data string) (Update, error) {
	class, payload, err := serialize.Unwrap(data)
	if err != nil {
		return nil, err
	}
	switch class {
	case classWorkflowUpdate:
		var u WorkflowUpdate
		if err := json.Unmarshal(payload, &u); err != nil {
			return nil, err
		}
		return u, nil
	case classTaskStatusUpdate:
		var u TaskStatusUpdate
		if err := json.Unmarshal(payload, &u); err != nil {
			return nil, err
		}
		return u, nil
	case classTaskLogUpdate:
		var u TaskLogUpdate
		if err := json.Unmarshal(payload, &u); err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("monitoring: unknown update class %q", class)
	}
}
