// Package http provides a fluent request builder, response snapshots and a
// registry of named, pre-configured clients.
//
// Building requests
//   - Mutators such as WithHeaders, WithToken, AsForm or Attach return the same
//     *Request so calls chain. Verbs (Get, Post, ...) dispatch through Send.
//   - Header merges are additive. WithToken and the content type selectors
//     replace their header.
//   - The queued raw body and file parts are cleared on every send.
//
// Retries
//   - Retry(times, sleep) sets the total number of attempts, the first one
//     included, and a fixed delay before each retry.
//   - With more than one try configured a non-success status is raised as a
//     *ResponseError so it is retried. With a single try the response is
//     returned as is and Throw must be called explicitly.
//   - Transport failures are reported as connection errors and are retried.
//     Validation errors never are. RetryWhen may veto any other retry.
//   - The delay honours context cancellation.
//
// Named clients
//   - Client resolves http.servers.<name> from configuration to a cached
//     Template. Request(name) hands out a fresh Request per call.
package http
