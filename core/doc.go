// Package core provides the foundational domain types and collaborator
// interfaces used by Loom. It defines the core abstractions for:
//
//   - Conversations, Messages and Blocks (the streaming message model)
//   - Tasks, Projects and Assistants (the units of work and their owners)
//   - CancelToken (cooperative, polled cancellation with a one-shot callback)
//   - Pluggable stores, the push-notification channel and prompt rendering
//
// The package intentionally keeps implementation concerns (persistence,
// provider adapters, orchestration) out of scope, exposing small interfaces
// to enable custom backends and extensions.
package core
