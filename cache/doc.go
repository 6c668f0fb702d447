// Package cache stores structured slot responses between runs.
//
// Responses are keyed by [gateway.Key]: a hash of the slot's exact content
// together with its day and block. Re-running a week in which one cell
// changed re-structures that slot only.
//
//	store, err := cache.OpenSQLite(".meetgrid/cache.sqlite")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//	gw := &gateway.Cached{Next: gemini, Store: store}
//
// [SQLite] persists to a single file through the pure-Go modernc.org/sqlite
// driver. [Memory] keeps responses in a map for tests and one-off runs.
package cache
