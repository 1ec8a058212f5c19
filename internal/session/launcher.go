package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smazurov/streamgate/internal/logging"
	"github.com/smazurov/streamgate/internal/process"
)

// Commands holds the backend command templates. Placeholders: {key}
// (logical stream key), {port} (assigned local port), {quality}
// (requested quality), {path} (recording output file).
type Commands struct {
	// View serves a broadcast on a local port, e.g.
	// "streamlink --player-external-http --player-external-http-port {port} twitch.tv/{key} {quality}"
	View string `toml:"view"`

	// Record writes a broadcast to a file, e.g.
	// "streamlink --output {path} twitch.tv/{key} {quality}"
	Record string `toml:"record"`
}

// ProcessLauncher spawns backend processes through the supervisor. It
// implements the registry's Launcher and is reused by the recording
// engine for file-writing spawns.
type ProcessLauncher struct {
	commands Commands
	profile  process.Profile
	logger   *slog.Logger
}

// NewProcessLauncher creates a launcher with the given command templates
// and marker profile.
func NewProcessLauncher(commands Commands, profile process.Profile) *ProcessLauncher {
	return &ProcessLauncher{
		commands: commands,
		profile:  profile,
		logger:   logging.GetLogger("process"),
	}
}

// Launch implements Launcher for viewing sessions.
func (l *ProcessLauncher) Launch(ctx context.Context, spec LaunchSpec) (Handle, error) {
	command := process.ExpandTemplate(l.commands.View, map[string]string{
		"key":     spec.Key,
		"port":    fmt.Sprintf("%d", spec.Port),
		"quality": spec.Quality,
	})

	runner := process.NewRunner(spec.Key, command, l.profile, l.logger.With("key", spec.Key))
	return runner.Start(ctx)
}

// LaunchRecording spawns a file-writing process for a channel. No port is
// assigned and admission control does not apply; failures surface with
// the same typed start errors as viewing spawns.
func (l *ProcessLauncher) LaunchRecording(ctx context.Context, channel, quality, path string) (Handle, error) {
	command := process.ExpandTemplate(l.commands.Record, map[string]string{
		"key":     channel,
		"quality": quality,
		"path":    path,
	})

	runner := process.NewRunner(channel, command, l.profile, l.logger.With("key", channel, "recording", true))
	return runner.Start(ctx)
}
