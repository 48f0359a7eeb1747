package canvas

import (
	"github.com/sketchbox/sketchbox/protocol"
)

// Queue is the ordered, append-only queue of pending actions. It is
// appended to from the receive path and drained exactly once per
// render pass; between two drains no action is lost or reordered.
type Queue struct {
	actions []protocol.Action
}

// Enqueue appends an action. It never blocks and never drops.
func (q *Queue) Enqueue(a protocol.Action) {
	q.actions = append(q.actions, a)
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	return len(q.actions)
}

// Drain returns every pending action in receipt order and clears the
// queue. Draining an empty queue returns nil.
func (q *Queue) Drain() []protocol.Action {
	if len(q.actions) == 0 {
		return nil
	}
	drained := q.actions
	q.actions = nil
	return drained
}

// Hooks receive the replayed actions that do not mutate the surface
// themselves. Nil hooks are skipped.
type Hooks struct {
	// SnapshotRequested fires for req-snapshot; the capture routine
	// runs outside the replay and the surface is untouched here.
	SnapshotRequested func()

	// Chat fires for each chat action, in receipt order.
	Chat func(protocol.ChatMessage)

	// RoundFinished fires when the server reveals the answer.
	RoundFinished func(correctAnswer string)

	// CorrectGuess fires when a guesser wins the round.
	CorrectGuess func(winner, correctAnswer string)
}

// Replay applies actions onto the surface strictly in order. Running it
// with an empty slice is a no-op, so a double drain changes nothing.
// It returns the number of actions applied.
func Replay(s *Surface, actions []protocol.Action, hooks Hooks) int {
	for i := range actions {
		a := &actions[i]
		switch a.Kind {
		case protocol.KindDrawStart:
			s.BeginPath(*a.Point)
		case protocol.KindDraw:
			s.LineTo(*a.Point)
		case protocol.KindDrawStop:
			s.ClosePath()
		case protocol.KindRoundStart:
			s.Clear()
		case protocol.KindRender:
			s.Repaint(a.Image)
			a.Image = nil // write-once, read-once
		case protocol.KindReqSnapshot:
			if hooks.SnapshotRequested != nil {
				hooks.SnapshotRequested()
			}
		case protocol.KindChat:
			if hooks.Chat != nil && a.Chat != nil {
				hooks.Chat(*a.Chat)
			}
		case protocol.KindRoundFinish:
			if hooks.RoundFinished != nil {
				hooks.RoundFinished(a.CorrectAnswer)
			}
		case protocol.KindCorrect:
			if hooks.CorrectGuess != nil {
				hooks.CorrectGuess(a.Winner, a.CorrectAnswer)
			}
		}
	}
	return len(actions)
}
