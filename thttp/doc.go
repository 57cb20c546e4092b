// Package thttp is the low-level wire client: a persistent HTTP connection
// handle with basic auth, per-request headers, concurrent fan-out, and
// debug logging of requests and responses.
package thttp
