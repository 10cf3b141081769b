// Package app wires seopilot together and manages its lifecycle.
//
// New builds every component once, in dependency order, and hands each one
// its collaborators explicitly:
//
//	1. OpenTelemetry providers and business metrics
//	2. the option store (memory, redis or postgres)
//	3. content settings, with defaults installed on first start
//	4. the license repository, client, cache, gate and scheduler
//	5. the optimizer and its text generator
//	6. the websocket hub, the bulk job runner and auth
//	7. the admin gateway, the router and the HTTP server
//
// Run serves until its context is cancelled, then shuts the server down
// within the configured timeout.
package app
