// Package fetch provides the HTTP client shared by the dataset pipelines.
//
// The client sends a descriptive User-Agent, applies a per-request timeout
// and retries transient failures (transport errors and 5xx responses) with
// exponential backoff. Client errors such as 404 fail immediately because
// retrying them cannot succeed.
package fetch
