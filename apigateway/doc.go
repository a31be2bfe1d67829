// Package gateway holds the HTTP edge of the signup service: request ids,
// request logging, prometheus instrumentation, operator auth for internal
// endpoints and the session cookie issued after registration.
package gateway
