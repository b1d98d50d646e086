// Package errors defines the closed set of failure kinds a request can end
// with, their HTTP status mapping and the JSON body written to clients.
package errors
