// Package api provides the HTTP REST API and WebSocket feed for the
// thermal monitor.
//
// Routes live under /api/v1:
//
//	GET  /health                      liveness and dependency checks
//	GET  /metrics                     runtime, monitor and connection stats
//	POST /auth/login                  operator login, returns a JWT
//	GET  /monitors                    snapshots of every monitor
//	GET  /monitors/{name}             snapshot of one monitor
//	GET  /monitors/{name}/disable     status line (text/plain)
//	PUT  /monitors/{name}/disable     control write, raw body ("1", "0\n")
//	GET  /monitors/{name}/history     recent readings (?limit=)
//	GET  /ws                          live reading and control events
//
// When a JWT secret is configured, PUT requests need a bearer token.
// With api.dashboard.enabled, every other path serves the status page
// from package panel.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
