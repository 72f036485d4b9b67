// Package gemini is the upstream adapter for Google's Gemini REST API.
//
// It owns the wire format for generateContent and model listing, and it
// converts non-2xx responses into structured *APIError values so the retry
// policy can classify failures without parsing error text. Retry hints
// (RetryInfo) and exhausted-quota details (QuotaFailure) are extracted
// best-effort from the error payload.
package gemini
