package server

import "errors"

// errNoHTTPHandler is returned by NewServer when there is nothing to serve.
// The replication endpoint is HTTP only.
var errNoHTTPHandler = errors.New("server requires an HTTP handler")
