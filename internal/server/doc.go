// Package server runs the replication endpoint's HTTP transport and shuts it
// down gracefully on SIGTERM, SIGINT or SIGQUIT.
package server
