package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/karlla1220/meetgrid/model"
)

// DefaultConcurrency bounds parallel calls when Dispatcher.Concurrency is
// unset.
const DefaultConcurrency = 4

// SlotResult is the outcome of structuring one slot.
type SlotResult struct {
	Request  Request
	Response Response

	// Err is a *model.GatewayUnavailableError when the slot is unresolved.
	Err error

	// Warnings are postcondition violations of a successful response.
	Warnings []model.DurationOverflowWarning

	Elapsed time.Duration
}

// Key returns the slot the result belongs to.
func (r SlotResult) Key() model.SlotKey {
	return r.Request.Slot()
}

// Resolved reports whether the gateway answered.
func (r SlotResult) Resolved() bool {
	return r.Err == nil
}

// Dispatcher structures many slots concurrently.
type Dispatcher struct {
	Gateway     Gateway
	Concurrency int           // maximum calls in flight; DefaultConcurrency if <= 0
	Timeout     time.Duration // per call; none if <= 0
	Logger      *zap.Logger
}

// Dispatch calls the gateway once per request and returns the results in
// request order after every slot has an outcome. A failure or timeout marks
// only its own slot unresolved; no call is cancelled mid-flight.
func (d *Dispatcher) Dispatch(ctx context.Context, reqs []Request) []SlotResult {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limit := d.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]SlotResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = d.call(ctx, req, log)
			return nil
		})
	}
	_ = g.Wait()

	unresolved := 0
	for _, r := range results {
		if !r.Resolved() {
			unresolved++
		}
	}
	log.Info("slots dispatched",
		zap.Int("slots", len(reqs)),
		zap.Int("unresolved", unresolved),
		zap.Int("concurrency", limit))
	return results
}

type outcome struct {
	resp Response
	err  error
}

// call runs one slot. The gateway sees a context that is never cancelled:
// a timeout or a cancelled ctx stops the wait and marks the slot
// unresolved, and the call itself runs to completion in the background.
func (d *Dispatcher) call(ctx context.Context, req Request, log *zap.Logger) SlotResult {
	start := time.Now()
	var o outcome
	if err := ctx.Err(); err != nil {
		o.err = err
	} else {
		o = d.await(ctx, req)
	}

	res := SlotResult{Request: req, Elapsed: time.Since(start)}
	fields := []zap.Field{
		zap.Stringer("slot", req.Slot()),
		zap.Int("fragments", len(req.Fragments)),
		zap.Duration("elapsed", res.Elapsed),
	}
	if o.err != nil {
		res.Err = &model.GatewayUnavailableError{Day: req.Day, Block: req.Block.Index, Err: o.err}
		log.Warn("slot unresolved", append(fields, zap.Error(o.err))...)
		return res
	}

	res.Response = o.resp
	res.Warnings = Validate(req, o.resp)
	for _, w := range res.Warnings {
		log.Warn("duration overflow", append(fields, zap.String("room", w.Room), zap.Int("total", w.Total))...)
	}
	log.Debug("slot structured", append(fields, zap.Int("sessions", len(o.resp.Sessions)))...)
	return res
}

func (d *Dispatcher) await(ctx context.Context, req Request) outcome {
	var expired <-chan time.Time
	if d.Timeout > 0 {
		timer := time.NewTimer(d.Timeout)
		defer timer.Stop()
		expired = timer.C
	}

	done := make(chan outcome, 1)
	go func() {
		resp, err := d.Gateway.Structure(context.WithoutCancel(ctx), req)
		done <- outcome{resp, err}
	}()

	select {
	case o := <-done:
		return o
	case <-expired:
		return outcome{err: context.DeadlineExceeded}
	case <-ctx.Done():
		return outcome{err: ctx.Err()}
	}
}
