// Package transport provides the default HTTP transport used by the send
// dispatcher. It executes provider wire requests with a shared http.Client
// and returns the raw response body for provider-side parsing.
package transport
