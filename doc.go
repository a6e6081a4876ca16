// Package tick provides a request counter backed by a transactional
// key-value store, together with a small supervisor that restarts the
// counting service and an HTTP endpoint that exposes it.
//
// # Key Concepts
//
//   - [Service] owns one named counter. Each [Service.Count] call runs a
//     single read-modify-write transaction against the store and returns
//     "Tick: n\n". The first call on a fresh instance initializes the
//     counter and returns "Tick: 0\n".
//   - [store.Store] is the transactional backend. An in-memory store is used
//     by default; SQLite, Redis and tiered stores are available for
//     durability across restarts.
//   - [Supervisor] replaces a crashed instance with a fresh one, calling
//     OnBeforeRestart and OnAfterRestart around the swap. [RestartPolicy]
//     decides whether the fresh instance resets the stored counter or
//     resumes from it.
//
// # Quick Start
//
//	sup := tick.NewSupervisor(func() *tick.Service {
//		return tick.New(tick.WithStore(st))
//	})
//	http.ListenAndServe(":9998", tick.NewRouter(sup, tick.DefaultPath))
//
// See the [Service] documentation for the full API.
package tick
