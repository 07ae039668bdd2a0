// Package agent implements the orchestration loop at the heart of the
// engine: it feeds conversation history to a provider, assembles the
// streamed response into a block-structured assistant message, dispatches
// any requested tool calls concurrently, and keeps looping until a turn
// settles without tool use.
//
// The loop is cooperative: a shared cancellation token is polled at every
// turn boundary, and signaling it is also how a settled run announces
// completion to its caller.
package agent
