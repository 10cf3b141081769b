// Package http exposes seopilot over HTTP: the admin action gateway, the
// session and nonce endpoints, item sync, health, metrics and the websocket
// upgrade.
//
// Every admin action is a POST to /api/admin/actions/{action} carrying a
// bearer session and a single-use nonce in X-Nonce. Responses carry the
// nonce for the next call in X-Next-Nonce and a {success, data} body.
package http
