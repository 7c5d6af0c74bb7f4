// Package history persists thermal readings and operator toggles in SQLite.
//
// Store is the repository over the temperature_readings and control_events
// tables. Recorder plugs a Store into a monitor as a thermal.Observer, and
// Pruner runs the retention job on a cron schedule.
//
// Usage:
//
//	store := history.NewStore(db.DB)
//	mon.AddObserver(history.NewRecorder(store, logger))
//
//	pruner, err := history.NewPruner(store, cfg.History, logger)
//	pruner.Start()
//	defer pruner.Stop()
package history
