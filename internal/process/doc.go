// Package process provides subprocess lifecycle management for media
// backends (streamlink, yt-dlp, ffmpeg).
//
// Runner handles one supervised start attempt:
//   - Spawns the command and scans stdout/stderr for the backend's
//     readiness and failure marker vocabulary
//   - Resolves first-signal-wins: readiness marker, failure marker,
//     premature exit, or startup timeout
//   - Falls back to "assume ready after a delay with no failure seen"
//     for backends without structured readiness signaling
//
// Handle manages the running process after a successful start:
//   - Graceful shutdown with SIGINT and a configurable grace window
//   - Force kill with SIGKILL if graceful shutdown times out
//   - Done channel plus exit code for monitor goroutines
//
// Example usage:
//
//	runner := process.NewRunner("somechannel", cmd, process.Profile{
//	    ReadyMarkers: []string{"server listening"},
//	    FailMarkers:  []string{"no playable stream"},
//	}, logger)
//	handle, err := runner.Start(ctx)
//	if err != nil {
//	    // typed *StartError: timeout, source unavailable, port busy...
//	}
//	defer handle.Stop()
//	<-handle.Done()
package process
