package events

// Event type constants for kelindar/event.
const (
	TypeStreamStarted uint32 = iota + 1
	TypeStreamEnded
	TypeStreamError
	TypeRecordingStarted
	TypeRecordingStopped
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StreamStartedEvent is published when a session's backend process has
// confirmed readiness and the local endpoint is reachable.
type StreamStartedEvent struct {
	Key       string `json:"key" example:"somechannel" doc:"Logical stream key"`
	URL       string `json:"url" example:"http://127.0.0.1:9000/" doc:"Locally reachable endpoint"`
	Port      int    `json:"port" example:"9000" doc:"Assigned local port"`
	Quality   string `json:"quality" example:"best" doc:"Requested quality"`
	Timestamp string `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStartedEvent.
func (e StreamStartedEvent) Type() uint32 { return TypeStreamStarted }

// StreamEndedEvent is published whenever a session leaves the registry,
// regardless of whether the exit was voluntary, evicted, or reaped.
type StreamEndedEvent struct {
	Key       string `json:"key" example:"somechannel" doc:"Logical stream key"`
	ExitCode  int    `json:"exit_code" example:"0" doc:"Process exit code"`
	Timestamp string `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamEndedEvent.
func (e StreamEndedEvent) Type() uint32 { return TypeStreamEnded }

// StreamErrorEvent is published when a session fails to start.
type StreamErrorEvent struct {
	Key       string `json:"key" example:"somechannel" doc:"Logical stream key"`
	Message   string `json:"message" example:"no playable stream" doc:"Failure reason"`
	Timestamp string `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamErrorEvent.
func (e StreamErrorEvent) Type() uint32 { return TypeStreamError }

// RecordingStartedEvent is published when a rule begins recording a channel.
type RecordingStartedEvent struct {
	Channel   string `json:"channel" example:"somechannel" doc:"Recorded channel"`
	RuleID    string `json:"rule_id" example:"rule-001" doc:"Owning rule identifier"`
	Game      string `json:"game,omitempty" example:"VALORANT" doc:"Game at recording start"`
	Title     string `json:"title,omitempty" doc:"Stream title at recording start"`
	Path      string `json:"path" doc:"Output file path"`
	Timestamp string `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingStartedEvent.
func (e RecordingStartedEvent) Type() uint32 { return TypeRecordingStarted }

// RecordingStoppedEvent is published when a recording process exits.
type RecordingStoppedEvent struct {
	Channel   string `json:"channel" example:"somechannel" doc:"Recorded channel"`
	RuleID    string `json:"rule_id" example:"rule-001" doc:"Owning rule identifier"`
	Status    string `json:"status" example:"completed" doc:"Final status: completed or failed"`
	Path      string `json:"path" doc:"Output file path"`
	SizeBytes int64  `json:"size_bytes" example:"1048576" doc:"Final file size in bytes"`
	Timestamp string `json:"timestamp" example:"2026-08-30T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingStoppedEvent.
func (e RecordingStoppedEvent) Type() uint32 { return TypeRecordingStopped }
