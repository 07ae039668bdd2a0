// Package runner turns persisted tasks into live conversation runs. It
// enforces at-most-one execution per task id through an explicitly owned
// registry of cancellation tokens, synthesizes the initial prompt messages
// for fresh conversations, and drives the stop/complete/archive lifecycle
// transitions.
package runner
