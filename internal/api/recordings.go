package api

import (
	"context"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/streamgate/internal/api/models"
)

// registerRecordingRoutes registers ledger and rule endpoints. Rules are
// operator-authored in the rules file, so the API view is read-only.
func (s *Server) registerRecordingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-recordings",
		Method:      http.MethodGet,
		Path:        "/api/recordings",
		Summary:     "List Recordings",
		Description: "Get all ledger records, newest first",
		Tags:        []string{"recordings"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.RecordingListResponse, error) {
		records, err := s.ledger.List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list recordings", err)
		}
		return &models.RecordingListResponse{
			Body: models.RecordingListData{
				Recordings: records,
				Count:      len(records),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-recording",
		Method:      http.MethodDelete,
		Path:        "/api/recordings/{id}",
		Summary:     "Delete Recording",
		Description: "Remove a ledger record and its file on disk",
		Tags:        []string{"recordings"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.RecordingDeleteRequest) (*models.RecordingDeleteResponse, error) {
		rec, ok, err := s.ledger.Get(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load recording", err)
		}
		if !ok {
			return nil, huma.Error404NotFound("no such recording")
		}

		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			return nil, huma.Error500InternalServerError("failed to delete recording file", err)
		}
		if _, err := s.ledger.Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete recording", err)
		}

		resp := &models.RecordingDeleteResponse{}
		resp.Body.Status = "deleted"
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-rules",
		Method:      http.MethodGet,
		Path:        "/api/rules",
		Summary:     "List Recording Rules",
		Description: "Get the current recording rules",
		Tags:        []string{"recordings"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.RuleListResponse, error) {
		rules := s.rules.GetAllRules()
		return &models.RuleListResponse{
			Body: models.RuleListData{
				Rules: rules,
				Count: len(rules),
			},
		}, nil
	})
}
