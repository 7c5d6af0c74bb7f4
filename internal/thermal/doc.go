// Package thermal implements the adaptive temperature polling loop.
//
// A Monitor periodically samples a Sensor, compares the reading against a
// critical threshold and picks its own polling cadence: the hot interval
// while the last reading is at or above the threshold, the normal interval
// otherwise. Polling is driven by a single recurring task armed through an
// injected Scheduler.
//
// # Invariants
//
//   - At most one poll cycle is pending or executing per monitor.
//   - Once SetEnabled(false) or Stop returns, no cycle is running and none
//     is pending.
//   - A failed read never changes the last temperature, so the cadence
//     chosen after a failure is the cadence of the previous classification.
//   - Before the first successful read a monitor is never classified hot.
//
// # Concurrency
//
// All monitor state (enabled flag, last temperature, task handle, in-flight
// marker) lives behind one mutex. The sensor read happens outside that
// mutex so Status and SetEnabled stay responsive while a read blocks.
//
// # Usage
//
//	sched := thermal.NewTimerScheduler()
//	defer sched.Close()
//
//	mon, err := thermal.NewMonitor(thermal.Options{
//	    Name:      "xo-therm",
//	    Sensor:    sensor,
//	    Scheduler: sched,
//	    Logger:    log,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := mon.Start(ctx, cfg.Monitors[0]); err != nil {
//	    return err // thermal.ErrConfig when a property is missing
//	}
//	defer mon.Stop()
//
//	fmt.Print(mon.Status()) // En:0 Poll-time:10 sec
package thermal
