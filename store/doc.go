// Package store provides volatile in-memory implementations of the core
// store interfaces. They are safe for concurrent access, clone entities at
// the boundary to prevent external mutation of internal state, and emit
// lifecycle notifications on the push channel the way a persistent backend
// would. Best suited for tests and ephemeral demo servers.
package store
