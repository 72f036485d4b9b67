// Package chunker splits oversized prompt text into bounded segments at
// paragraph boundaries, falling back to sentence boundaries, so the pieces
// can be submitted to the LLM independently and reassembled in order.
package chunker
