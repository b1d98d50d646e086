// Package component defines the lifecycle contract shared by the long-lived
// parts of the chat server (database, notify hub, HTTP server) and the
// Registry that starts them in order and stops them in reverse.
package component
