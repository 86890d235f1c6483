// Package http exposes the reservation core over a JSON REST surface plus a
// websocket change feed for clients that want push-based refresh.
package http
