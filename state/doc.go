// Package state provides the key-value persistence boundary used to keep
// run results across restarts.
//
// # Overview
//
// The orchestration core never talks to storage directly; it writes through
// the Store interface so the host decides where results live. Two
// implementations ship:
//
//   - MemoryStore: in-process storage for tests and ephemeral sessions
//   - NATSStore: durable storage on a NATS JetStream key-value bucket
//
// # Usage
//
// Persist and rehydrate a record:
//
//	st := state.NewMemoryStore()
//	defer st.Close()
//
//	_ = st.Put("results.proj.disk-usage", payload, 0)
//	data, err := st.Get("results.proj.disk-usage")
//
// Values are opaque bytes; the results package owns the encoding.
package state
