package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/streamgate/internal/api/models"
	"github.com/smazurov/streamgate/internal/process"
	"github.com/smazurov/streamgate/internal/session"
)

// registerStreamRoutes registers stream control endpoints.
func (s *Server) registerStreamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-streams",
		Method:      http.MethodGet,
		Path:        "/api/streams",
		Summary:     "List Active Streams",
		Description: "Get all currently active stream sessions",
		Tags:        []string{"streams"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StreamListResponse, error) {
		sessions := s.manager.ListActive()
		apiStreams := make([]models.StreamData, len(sessions))
		for i, sess := range sessions {
			apiStreams[i] = s.sessionToAPI(sess)
		}
		return &models.StreamListResponse{
			Body: models.StreamListData{
				Streams: apiStreams,
				Count:   len(apiStreams),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-stream",
		Method:      http.MethodPost,
		Path:        "/api/streams/{key}",
		Summary:     "Start Stream",
		Description: "Start (or return the existing) stream session for a key",
		Tags:        []string{"streams"},
		Errors:      []int{401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StreamStartRequest) (*models.StreamResponse, error) {
		quality := input.Body.Quality
		if quality == "" {
			quality = "best"
		}
		sess, err := s.manager.Acquire(ctx, input.Key, quality)
		if err != nil {
			return nil, s.mapStartError(err)
		}
		resp := &models.StreamResponse{Body: s.sessionToAPI(sess)}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-stream",
		Method:      http.MethodDelete,
		Path:        "/api/streams/{key}",
		Summary:     "Stop Stream",
		Description: "Stop a stream session. Stopping an unknown key is a no-op",
		Tags:        []string{"streams"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StreamStopRequest) (*models.StreamStopResponse, error) {
		s.manager.Stop(input.Key)
		resp := &models.StreamStopResponse{}
		resp.Body.Status = "stopped"
		return resp, nil
	})
}

func (s *Server) sessionToAPI(sess *session.Session) models.StreamData {
	viewers := 0
	if rec, ok := s.manager.Presence().Lookup(sess.Key); ok {
		viewers = rec.Refs
	}
	return models.StreamData{
		Key:       sess.Key,
		Quality:   sess.Quality,
		Port:      sess.Port,
		URL:       sess.URL,
		StartedAt: sess.StartedAt,
		Viewers:   viewers,
	}
}

// mapStartError converts supervisor start failures to HTTP errors. Every
// start failure class maps to 503 with the reason text; callers retry or
// give up, there is nothing to fix in the request itself.
func (s *Server) mapStartError(err error) error {
	var startErr *process.StartError
	if errors.As(err, &startErr) {
		return huma.Error503ServiceUnavailable(startErr.Message, err)
	}
	return huma.Error503ServiceUnavailable("stream could not be started", err)
}
