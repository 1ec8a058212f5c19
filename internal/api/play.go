package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/streamgate/internal/address"
	"github.com/smazurov/streamgate/internal/api/models"
)

// bandQuality maps a decoded quality band to the quality string passed
// to the backend process.
func bandQuality(band address.Band) string {
	switch band {
	case address.Band720p:
		return "720p"
	case address.Band480p:
		return "480p"
	default:
		return "best"
	}
}

// registerPlayRoute registers the numeric playback endpoint. Issuing the
// redirect is the connect signal: numeric clients make no other call, so
// each hit refreshes presence for the session.
func (s *Server) registerPlayRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID: "play-stream",
		Method:      http.MethodGet,
		Path:        "/play/{stream_id}",
		Summary:     "Play Stream by Numeric ID",
		Description: "Decode a numeric stream id, start the session if needed, and redirect to the playback URL",
		Tags:        []string{"play"},
		Errors:      []int{404, 503},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *models.PlayRequest) (*models.PlayResponse, error) {
		baseID, band, err := address.Decode(input.StreamID)
		if err != nil {
			return nil, huma.Error404NotFound("unknown stream id", err)
		}

		key, err := s.resolver.Lookup(baseID)
		if err != nil {
			return nil, huma.Error404NotFound("no channel for stream id", err)
		}

		sess, err := s.manager.Acquire(ctx, key, bandQuality(band))
		if err != nil {
			return nil, s.mapStartError(err)
		}

		presence := s.manager.Presence()
		if _, ok := presence.Lookup(key); ok {
			presence.Touch(key)
		} else {
			presence.Connect(key)
		}

		return &models.PlayResponse{
			Status:   http.StatusFound,
			Location: sess.URL,
		}, nil
	})
}
