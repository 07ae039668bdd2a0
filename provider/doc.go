// Package provider defines the normalized streaming chat-completion
// contract and the closed set of provider kinds. Concrete adapters live in
// the subpackages (anthropic, openai, google) and bridge each vendor's wire
// protocol into the single internal event vocabulary consumed by the agent
// orchestrator.
package provider
