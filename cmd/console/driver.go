package main

import (
	"context"
	"sync"

	"github.com/jwebster45206/soma-recovery/internal/handlers"
	"github.com/jwebster45206/soma-recovery/pkg/engine"
)

// driver runs a session for the UI, either in-process or through the API.
// Every call returns the full session view after it has been applied.
type driver interface {
	Snapshot(ctx context.Context) (handlers.SessionResponse, error)
	Frame(ctx context.Context, in engine.Input, dt float64) (handlers.SessionResponse, error)
	Action(ctx context.Context, req handlers.ActionRequest) (handlers.SessionResponse, error)
	Close() error
}

// localDriver plays against an in-process engine. Calls arrive from tea
// commands on separate goroutines, so the session is guarded.
type localDriver struct {
	mu   sync.Mutex
	sess *engine.Session
}

func newLocalDriver(sess *engine.Session) *localDriver {
	return &localDriver{sess: sess}
}

func (d *localDriver) view() handlers.SessionResponse {
	return handlers.SessionResponse{
		ID:       d.sess.State.ID,
		State:    d.sess.Snapshot(),
		Velocity: d.sess.Velocity,
		Moving:   d.sess.Moving,
	}
}

func (d *localDriver) Snapshot(ctx context.Context) (handlers.SessionResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view(), nil
}

func (d *localDriver) Frame(ctx context.Context, in engine.Input, dt float64) (handlers.SessionResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dt > handlers.MaxFrameDelta {
		dt = handlers.MaxFrameDelta
	}
	frame := d.sess.Step(in, dt)
	resp := d.view()
	resp.Frame = &frame
	return resp, nil
}

func (d *localDriver) Action(ctx context.Context, req handlers.ActionRequest) (handlers.SessionResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	result, err := handlers.ApplyAction(d.sess, req)
	if err != nil {
		return handlers.SessionResponse{}, err
	}
	resp := d.view()
	resp.Result = &result
	return resp, nil
}

func (d *localDriver) Close() error {
	return nil
}
