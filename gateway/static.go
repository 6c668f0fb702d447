package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/karlla1220/meetgrid/model"
)

// ErrNoResponse is returned by Static for slots it holds no answer for.
var ErrNoResponse = errors.New("no canned response")

// Static replays canned responses by slot.
type Static map[model.SlotKey]Response

// Structure implements Gateway.
func (s Static) Structure(_ context.Context, req Request) (Response, error) {
	resp, ok := s[req.Slot()]
	if !ok {
		return Response{}, fmt.Errorf("slot %s: %w", req.Slot(), ErrNoResponse)
	}
	return resp, nil
}
