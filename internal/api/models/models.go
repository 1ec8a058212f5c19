package models

import (
	"time"

	"github.com/smazurov/streamgate/internal/recording"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	Version string `json:"version" example:"0.1.0" doc:"Running daemon version"`
}

type HealthResponse struct {
	Body HealthData
}

// Stream models
type StreamData struct {
	Key       string    `json:"key" example:"somechannel" doc:"Logical stream key"`
	Quality   string    `json:"quality" example:"best" doc:"Requested quality"`
	Port      int       `json:"port" example:"9000" doc:"Local serving port"`
	URL       string    `json:"url" example:"http://127.0.0.1:9000/" doc:"Playback URL"`
	StartedAt time.Time `json:"started_at" doc:"When the backend process became ready"`
	Viewers   int       `json:"viewers" example:"1" doc:"Current presence reference count"`
}

type StreamListData struct {
	Streams []StreamData `json:"streams" doc:"Active streams"`
	Count   int          `json:"count" example:"2" doc:"Number of active streams"`
}

type StreamListResponse struct {
	Body StreamListData
}

type StreamStartRequest struct {
	Key string `path:"key" maxLength:"100" example:"somechannel" doc:"Logical stream key"`
	Body struct {
		Quality string `json:"quality,omitempty" example:"best" doc:"Quality to request from the backend"`
	}
}

type StreamResponse struct {
	Body StreamData
}

type StreamStopRequest struct {
	Key string `path:"key" maxLength:"100" example:"somechannel" doc:"Logical stream key"`
}

type StreamStopResponse struct {
	Body struct {
		Status string `json:"status" example:"stopped" doc:"Operation result"`
	}
}

// Play redirect models
type PlayRequest struct {
	StreamID int64 `path:"stream_id" example:"10000012345" doc:"Numeric stream id (base id plus quality band offset)"`
}

type PlayResponse struct {
	Status   int
	Location string `header:"Location"`
}

// Recording models
type RecordingListData struct {
	Recordings []recording.Record `json:"recordings" doc:"Ledger records, newest first"`
	Count      int                `json:"count" example:"3" doc:"Number of records"`
}

type RecordingListResponse struct {
	Body RecordingListData
}

type RecordingDeleteRequest struct {
	ID int64 `path:"id" example:"7" doc:"Ledger record id"`
}

type RecordingDeleteResponse struct {
	Body struct {
		Status string `json:"status" example:"deleted" doc:"Operation result"`
	}
}

// Rule models
type RuleListData struct {
	Rules []recording.Rule `json:"rules" doc:"Recording rules in file order"`
	Count int              `json:"count" example:"2" doc:"Number of rules"`
}

type RuleListResponse struct {
	Body RuleListData
}
