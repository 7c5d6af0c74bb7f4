// Package panel serves the built-in status dashboard.
//
// The dashboard is a single static page embedded into the binary. It lists
// monitors from GET /api/v1/monitors, follows the thermal.reading and
// thermal.control WebSocket channels, and can toggle a monitor through
// PUT /api/v1/monitors/{name}/disable.
//
// Setting api.dashboard.dir serves the assets from disk instead, so the
// page can be edited without a rebuild.
package panel
