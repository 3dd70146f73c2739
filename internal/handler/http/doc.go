// Package http implements the REST transport of the replication endpoint.
//
// Sync routes require a bearer token. Requests pass through trace id,
// access logging and gzip middleware before reaching the service layer, and
// every error leaves the package as a JSON {"error": "..."} body.
package http
