// Package trellis is the Composition Root for the trellis data layer.
//
// It connects the path-addressed data client (Domain Layer) with the flat
// document store adapters (Persistence Layer) using the Hexagonal
// Architecture pattern.
//
// Philosophy:
//
// Trellis presents directory-style hierarchical semantics over a backend
// that natively supports only flat key lookup and narrowly bounded atomic
// transactions. Many independent callers read and write small JSON documents
// identified by hierarchical paths scoped to a workspace; trellis keeps a
// client-side cache coherent across them without a server push channel.
//
// Features:
//
//   - **Hexagonal Architecture**: The data client is isolated from storage details.
//   - **Workspace Isolation**: Every operation is scoped to exactly one tenant.
//   - **Bounded Atomicity**: Batches of up to 25 operations commit all-or-nothing.
//   - **Filesystem Emulation**: mkdir/rm/ls/exists/mv derived from flat keys.
//   - **Optimistic Updates**: Local mutations mask reads until confirmed.
//   - **Extensible**: Other backends plug in via `core.Store`.
//
// Usage:
//
//	// Initialize service with functional options
//	svc, err := trellis.New("./data",
//		trellis.WithWorkspace("ws-1"),
//		trellis.WithActor("user-1"),
//	)
//
//	// Write and read a document
//	err = svc.Write(ctx, "/sessions/42/name", "Demo")
//	value, err := svc.Read(ctx, "/sessions/42/name")
package trellis
