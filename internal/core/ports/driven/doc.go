// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ChunkStore: persisted chunk set and corpus fingerprint
//   - PromptCache: exact-match response cache
//   - MemoryStore: long-term context memory
//   - DocumentLoader: reads the corpus folder
//   - EmbeddingService: generates vector embeddings
//   - ModelService: chat model invocation (plain and streaming)
//   - ConfigStore: application configuration
//   - PromptStore: system prompt templates
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: any adapter package
package driven
