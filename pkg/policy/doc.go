// Package policy implements a sliding-window metric watcher.
//
// A Watcher periodically asks a Policy for a measurement, keeps the samples
// that fall within a trailing window of ticks and, once the window holds at
// least MinSamples entries, hands the ordered samples back to the Policy for
// evaluation. The watcher knows nothing about what is measured or what a
// verdict means; both belong to the Policy.
//
// Each tick:
//
//  1. reads the current time from the Clock,
//  2. calls Policy.Measure and appends a sample when it reports success,
//  3. prunes samples older than WindowDuration relative to the tick's time,
//  4. calls Policy.Evaluate if at least MinSamples samples remain.
//
// Ticks are driven by a Scheduler. The scheduler is responsible for never
// running two ticks of the same watcher concurrently, and for making
// Registration.Unregister wait for an in-flight tick, which gives Stop its
// "no tick after return" guarantee. Measure and Evaluate run inline on the
// scheduler's goroutine and must be fast and non-blocking.
//
// Example:
//
//	clk := clock.NewMonotonic()
//	exec := sched.NewExecutor(clk, sched.DefaultResolution)
//	go exec.Run(ctx)
//
//	w, err := policy.New(policy.Options{
//		Name:               "mirror-0",
//		WindowDuration:     clock.FromDuration(clk, 10*time.Second),
//		MinSamples:         5,
//		EvaluationInterval: clock.FromDuration(clk, 500*time.Millisecond),
//	}, latencyPolicy, clk, exec)
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	if err := w.Start(); err != nil {
//		return err
//	}
package policy
