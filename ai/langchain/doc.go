// Package langchain adapts langchaingo clients to the ai interfaces.
//
// The openai and ollama packages construct the underlying clients; this
// package owns the shared request and response handling.
package langchain
