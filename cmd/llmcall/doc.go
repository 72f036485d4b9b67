// Command llmcall sends prompts to the Gemini API with on-disk response
// caching, oversized-prompt chunking, and failure-class-aware retries.
package main
