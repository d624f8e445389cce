package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/goodnews/internal/app"
	"github.com/neomorfeo/goodnews/internal/domain"
)

// AuditRecordResponse is the API representation of one audit entry.
type AuditRecordResponse struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	Action     string          `json:"action" doc:"Verb and family, e.g. transition_article"`
	Family     string          `json:"family"`
	EntityID   string          `json:"entity_id"`
	Before     domain.Snapshot `json:"before" doc:"Changed fields before the mutation; null on create"`
	After      domain.Snapshot `json:"after" doc:"Changed fields after the mutation; null on delete"`
	OccurredAt string          `json:"occurred_at"`
}

type ListAuditInput struct {
	Family   string `query:"family" required:"false" doc:"Filter by content family"`
	EntityID string `query:"entity_id" required:"false" doc:"Filter by entity"`
	ActorID  string `query:"actor_id" required:"false" doc:"Filter by actor"`
	Action   string `query:"action" required:"false" doc:"Filter by action"`
	Limit    int    `query:"limit" required:"false" default:"50" minimum:"1" maximum:"500" doc:"Max results"`
	Offset   int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListAuditOutput struct {
	Body []AuditRecordResponse
}

func registerAudit(api huma.API, audit *app.AuditRecorder) {
	huma.Register(api, huma.Operation{
		OperationID: "list-audit-records",
		Method:      http.MethodGet,
		Path:        "/api/v1/audit-records",
		Summary:     "Read the audit trail, newest first",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *ListAuditInput) (*ListAuditOutput, error) {
		records, err := audit.List(ctx, domain.AuditFilter{
			Family:   domain.Family(input.Family),
			EntityID: input.EntityID,
			ActorID:  input.ActorID,
			Action:   input.Action,
			Limit:    input.Limit,
			Offset:   input.Offset,
		})
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		resp := make([]AuditRecordResponse, len(records))
		for i, r := range records {
			resp[i] = AuditRecordResponse{
				ID:         r.ID,
				ActorID:    r.ActorID,
				Action:     r.Action,
				Family:     string(r.Family),
				EntityID:   r.EntityID,
				Before:     r.Before,
				After:      r.After,
				OccurredAt: r.OccurredAt.Format(time.RFC3339Nano),
			}
		}
		return &ListAuditOutput{Body: resp}, nil
	})
}
