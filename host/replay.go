package host

import (
	"context"
	"log/slog"
	"time"

	"github.com/lixenwraith/diffsound/attribution"
	"github.com/lixenwraith/diffsound/events"
)

// Submitter receives replayed events; the orchestrator satisfies it
type Submitter interface {
	Submit(t events.EventType, payload any)
}

// Replayer feeds a script into a Submitter on the script's schedule
type Replayer struct {
	// Speed scales delays; 2 plays twice as fast. Zero or negative means 1
	Speed float64

	wait func(ctx context.Context, d time.Duration) error
	log  *slog.Logger
}

// NewReplayer creates a replayer waiting on real time
func NewReplayer() *Replayer {
	return &Replayer{
		Speed: 1,
		wait:  sleep,
		log:   slog.Default().With("component", "host"),
	}
}

// Session returns the script's live collaboration session for the attribution gate
func (s *Script) Session() attribution.StaticSession {
	return attribution.StaticSession(s.Participants)
}

// Run submits every step in order and returns the number submitted
// Stops early with ctx's error when cancelled mid-script
func (r *Replayer) Run(ctx context.Context, s *Script, sink Submitter) (int, error) {
	speed := r.Speed
	if speed <= 0 {
		speed = 1
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		if d := time.Duration(float64(step.Delay) / speed); d > 0 {
			if err := r.wait(ctx, d); err != nil {
				return i, err
			}
		} else if err := ctx.Err(); err != nil {
			return i, err
		}

		payload, err := step.payload()
		if err != nil {
			// Parse already validated every payload
			return i, err
		}
		r.log.Debug("replay step", "index", i+1, "event", step.Event)
		sink.Submit(step.eventType, payload)
	}
	return len(s.Steps), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
