package pedal

import "github.com/pedal-ide/pedal-go/internal/runtime"

// messageQueue buffers decoded events between the listener goroutines and
// the control thread. Each backend process gets a fresh queue; killing the
// process abandons the old queue wholesale, so events from a dead process
// can never leak into its successor.
type messageQueue struct {
	queue *runtime.Queue[Event]
}

func newMessageQueue() *messageQueue {
	return &messageQueue{queue: runtime.NewQueue[Event]()}
}

func (queue *messageQueue) enqueue(event Event) {
	queue.queue.Push(event)
}

// dequeueNext pops the oldest pending event. Consecutive ProgramOutput
// events of the same stream are merged into one, concatenating their data in
// arrival order, to cut the rate of UI-facing updates for chatty programs.
// Merging stops at the first event of a different type or stream, which is
// put back for the next call.
func (queue *messageQueue) dequeueNext() (Event, bool) {
	event, ok := queue.queue.TryPop()
	if !ok {
		return nil, false
	}

	output, ok := event.(ProgramOutput)
	if !ok {
		return event, true
	}

	for {
		next, ok := queue.queue.TryPop()
		if !ok {
			return output, true
		}
		nextOutput, ok := next.(ProgramOutput)
		if !ok || nextOutput.StreamName != output.StreamName {
			queue.queue.PushFront(next)
			return output, true
		}
		output.Data += nextOutput.Data
	}
}

func (queue *messageQueue) len() int {
	return queue.queue.Len()
}
