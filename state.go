package tick

import (
	"context"

	"github.com/looplab/fsm"
)

// Instance states. A service is Fresh until its first successful Count and
// Ticking afterwards. A restart always produces a Fresh instance.
const (
	StateFresh   = "fresh"
	StateTicking = "ticking"

	eventTick = "tick"
)

func newInstanceFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateFresh,
		fsm.Events{
			{Name: eventTick, Src: []string{StateFresh}, Dst: StateTicking},
		},
		fsm.Callbacks{},
	)
}

// markTicking moves the instance to Ticking. Firing from Ticking is a no-op.
func markTicking(ctx context.Context, f *fsm.FSM) error {
	if f.Is(StateTicking) {
		return nil
	}
	return f.Event(ctx, eventTick)
}
