package gateway

import (
	"context"

	"go.uber.org/zap"
)

// Store persists responses by request key.
type Store interface {
	Get(ctx context.Context, key Key) (Response, bool, error)
	Put(ctx context.Context, key Key, resp Response) error
}

// Cached answers from Store when it can and records Next's answers
// otherwise. Store failures are logged and never fail the call.
type Cached struct {
	Next   Gateway
	Store  Store
	Logger *zap.Logger
}

// Structure implements Gateway.
func (c *Cached) Structure(ctx context.Context, req Request) (Response, error) {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	key := req.Key()

	resp, ok, err := c.Store.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn("cache read failed", zap.Stringer("key", key), zap.Error(err))
	case ok:
		log.Debug("cache hit", zap.Stringer("key", key))
		return resp, nil
	}

	resp, err = c.Next.Structure(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if err := c.Store.Put(ctx, key, resp); err != nil {
		log.Warn("cache write failed", zap.Stringer("key", key), zap.Error(err))
	}
	return resp, nil
}
