// Package bootstrap runs the chat server's components under one lifecycle.
//
// Components start in registration order (database, notify hub, HTTP
// server) and stop in reverse order once SIGINT or SIGTERM arrives. Hooks
// run around those phases, and a startup summary lists the infrastructure,
// the HTTP routes and the health of every component.
package bootstrap
