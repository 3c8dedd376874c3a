package kernel

import (
	"time"

	"github.com/adpilot-ai/adpilot/pkg/models"
)

// emitter stamps and sequences the events of a single kernel run. All
// emission happens from the run goroutine, so the sequence counter needs
// no synchronization; sends race only against the consumer going away.
type emitter struct {
	runID    string
	sequence uint64
	iter     int
	ch       chan<- models.AgentEvent
	done     <-chan struct{}
}

func newEmitter(runID string, ch chan<- models.AgentEvent, done <-chan struct{}) *emitter {
	return &emitter{runID: runID, ch: ch, done: done}
}

// setIter updates the iteration stamped on subsequent events.
func (e *emitter) setIter(iter int) {
	e.iter = iter
}

func (e *emitter) base(eventType models.AgentEventType) models.AgentEvent {
	e.sequence++
	return models.AgentEvent{
		Type:      eventType,
		Time:      time.Now(),
		Sequence:  e.sequence,
		RunID:     e.runID,
		Iteration: e.iter,
	}
}

// send delivers the event unless the consumer has disconnected.
func (e *emitter) send(event models.AgentEvent) {
	select {
	case e.ch <- event:
	case <-e.done:
	}
}

func (e *emitter) thinking(message string) {
	event := e.base(models.EventThinking)
	event.Thinking = &models.ThinkingPayload{Message: message}
	e.send(event)
}

func (e *emitter) thought(content string) {
	event := e.base(models.EventThought)
	event.Thought = &models.ThoughtPayload{Content: content}
	e.send(event)
}

func (e *emitter) action(tool, message string) {
	event := e.base(models.EventAction)
	event.Action = &models.ActionPayload{Tool: tool, Message: message}
	e.send(event)
}

func (e *emitter) observation(obs models.Observation) {
	payload := &models.ObservationPayload{
		Tool:        obs.Tool,
		Success:     obs.OK,
		Attempts:    obs.Attempts,
		Attachments: obs.Attachments,
	}
	if obs.OK {
		payload.Result = obs.Data
	} else if obs.Error != nil {
		payload.Result = obs.Error.Message
	}
	for _, att := range obs.Attachments {
		switch att.Type {
		case "image":
			payload.Images = append(payload.Images, att.URL)
		case "video":
			payload.VideoURL = att.URL
			payload.VideoObjectName = att.ObjectName
		}
	}
	event := e.base(models.EventObservation)
	event.Observation = payload
	e.send(event)
}

func (e *emitter) evaluation(eval models.Evaluation) {
	event := e.base(models.EventEvaluation)
	event.Evaluation = &models.EvaluationPayload{
		NeedsInput: eval.NeedsInput,
		Reason:     eval.Reason,
	}
	e.send(event)
}

func (e *emitter) reflection(content string) {
	event := e.base(models.EventReflection)
	event.Reflection = &models.ReflectionPayload{Content: content}
	e.send(event)
}

func (e *emitter) text(content string) {
	event := e.base(models.EventText)
	event.Text = &models.TextPayload{Content: content}
	e.send(event)
}

func (e *emitter) inputRequest(eval models.Evaluation) {
	payload := &models.InputRequestPayload{
		Kind:     models.RequestKindFor(eval.Kind),
		Question: eval.Question,
		Options:  eval.Options,
	}
	metadata := map[string]any{}
	if eval.Parameter != "" {
		metadata["parameter"] = eval.Parameter
	}
	if eval.SuggestedAction != nil {
		metadata["suggested_action"] = eval.SuggestedAction
	}
	if len(metadata) > 0 {
		payload.Metadata = metadata
	}
	event := e.base(models.EventInputRequest)
	event.InputRequest = payload
	e.send(event)
}

func (e *emitter) errorEvent(info *models.ErrorInfo) {
	event := e.base(models.EventError)
	event.Error = info
	e.send(event)
}

func (e *emitter) doneEvent() {
	e.send(e.base(models.EventDone))
}
