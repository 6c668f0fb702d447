// Package gateway turns the free text of one schedule slot into candidate
// sessions.
//
// A [Gateway] receives everything known about one (day, block) slot: the
// fragments of every source, the primary's room labels and advisory room
// hints. It answers with candidate sessions carrying a name, a room label,
// start and end times and optional chair, agenda item and category. The
// contract is a pure request/response boundary; implementations keep no
// state that changes the answer for identical input.
//
// # Implementations
//
//   - [Gemini] asks a Gemini model for structured JSON output.
//   - [Heuristic] applies fixed text rules and needs no network.
//   - [Static] replays canned responses.
//   - [Func] adapts a plain function.
//
// [Cached] wraps any of them with a [Store] keyed on the exact request
// content, so a changed fragment invalidates only its own slot.
//
// # Dispatch
//
// [Dispatcher] calls a gateway once per slot, in parallel up to a limit,
// and waits for every call before returning. A failed or timed-out slot is
// reported as a [model.GatewayUnavailableError] on that slot alone:
//
//	d := &gateway.Dispatcher{Gateway: gw, Concurrency: 4, Timeout: time.Minute, Logger: log}
//	for _, res := range d.Dispatch(ctx, requests) {
//		if !res.Resolved() {
//			fmt.Println("unresolved:", res.Key(), res.Err)
//		}
//	}
package gateway
