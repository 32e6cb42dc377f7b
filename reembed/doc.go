// Package reembed rewrites the vectors of every stored chunk with the
// current embedding provider.
//
// It is run explicitly by an operator after switching embedding models.
// The recorded schema dimension is reset to the new embedder's dimension,
// chunks are paged in ID order, re-embedded in batches with retry, and
// written back atomically per batch.
package reembed
