package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/goodnews/internal/app"
	"github.com/neomorfeo/goodnews/internal/domain"
)

// EntityResponse is the API representation of a publishable entity.
type EntityResponse struct {
	ID          string  `json:"id" doc:"Unique identifier"`
	Family      string  `json:"family" doc:"Content family"`
	Title       string  `json:"title" doc:"Display title"`
	Slug        string  `json:"slug,omitempty" doc:"URL-friendly identifier (articles only)"`
	Status      string  `json:"status" doc:"Lifecycle state"`
	ScheduledAt *string `json:"scheduled_at,omitempty" doc:"When a scheduled article goes live (RFC 3339)"`
	PublishedAt *string `json:"published_at,omitempty" doc:"When the article was first published (RFC 3339)"`
	StartsAt    *string `json:"starts_at,omitempty" doc:"Start of the listing plan or campaign (RFC 3339)"`
	ExpiresAt   *string `json:"expires_at,omitempty" doc:"When the listing expires (RFC 3339)"`
	EndsAt      *string `json:"ends_at,omitempty" doc:"When the advertisement ends (RFC 3339)"`
	PlanDays    int     `json:"plan_days,omitempty" doc:"Listing plan length in days"`
	Version     int64   `json:"version" doc:"Optimistic concurrency version"`
	CreatedAt   string  `json:"created_at" doc:"Creation timestamp (RFC 3339)"`
	UpdatedAt   string  `json:"updated_at" doc:"Last update timestamp (RFC 3339)"`
}

func toEntityResponse(e domain.Entity) EntityResponse {
	return EntityResponse{
		ID:          e.ID,
		Family:      string(e.Family),
		Title:       e.Title,
		Slug:        e.Slug,
		Status:      string(e.Status),
		ScheduledAt: formatOptional(e.ScheduledAt),
		PublishedAt: formatOptional(e.PublishedAt),
		StartsAt:    formatOptional(e.StartsAt),
		ExpiresAt:   formatOptional(e.ExpiresAt),
		EndsAt:      formatOptional(e.EndsAt),
		PlanDays:    e.PlanDays,
		Version:     e.Version,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// --- Create ---

type CreateEntityInput struct {
	Family  string `path:"family" enum:"article,listing,advertisement" doc:"Content family"`
	ActorID string `header:"X-Actor-ID" required:"true" minLength:"1" doc:"Acting editor"`
	Body    struct {
		Title       string     `json:"title" minLength:"1" maxLength:"255" doc:"Display title"`
		Status      string     `json:"status,omitempty" enum:"draft,scheduled,published" doc:"Initial article state"`
		ScheduledAt *time.Time `json:"scheduled_at,omitempty" doc:"Go-live time for a scheduled article"`
		StartsAt    *time.Time `json:"starts_at,omitempty" doc:"Listing plan or campaign start"`
		EndsAt      *time.Time `json:"ends_at,omitempty" doc:"Campaign end (advertisements)"`
		PlanDays    int        `json:"plan_days,omitempty" minimum:"0" maximum:"365" doc:"Listing plan length in days (default 30)"`
	}
}

type EntityOutput struct {
	Body EntityResponse
}

// --- Get ---

type GetEntityInput struct {
	Family string `path:"family" enum:"article,listing,advertisement" doc:"Content family"`
	ID     string `path:"id" doc:"Entity ID"`
}

type GetBySlugInput struct {
	Family string `path:"family" enum:"article,listing,advertisement" doc:"Content family"`
	Slug   string `path:"slug" minLength:"1" doc:"Public slug"`
}

// --- List ---

type ListEntitiesInput struct {
	Family string `path:"family" enum:"article,listing,advertisement" doc:"Content family"`
	Status string `query:"status" required:"false" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" minimum:"1" maximum:"500" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListEntitiesOutput struct {
	Body []EntityResponse
}

// --- Transition ---

type TransitionInput struct {
	Family  string `path:"family" enum:"article,listing,advertisement" doc:"Content family"`
	ID      string `path:"id" doc:"Entity ID"`
	ActorID string `header:"X-Actor-ID" required:"true" minLength:"1" doc:"Acting editor"`
	Body    struct {
		Status      string     `json:"status" minLength:"1" doc:"Requested lifecycle state"`
		ScheduledAt *time.Time `json:"scheduled_at,omitempty" doc:"Go-live time when scheduling an article"`
	}
}

// --- Rename ---

type RenameInput struct {
	Family  string `path:"family" enum:"article,listing,advertisement" doc:"Content family"`
	ID      string `path:"id" doc:"Entity ID"`
	ActorID string `header:"X-Actor-ID" required:"true" minLength:"1" doc:"Acting editor"`
	Body    struct {
		Title string `json:"title" minLength:"1" maxLength:"255" doc:"New display title"`
	}
}

// --- Delete ---

type DeleteEntityInput struct {
	Family  string `path:"family" enum:"article,listing,advertisement" doc:"Content family"`
	ID      string `path:"id" doc:"Entity ID"`
	ActorID string `header:"X-Actor-ID" required:"true" minLength:"1" doc:"Acting editor"`
}

// Register adds the content and audit API routes to the Huma API.
func Register(api huma.API, svc *app.LifecycleService, audit *app.AuditRecorder) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-entity",
		Method:        http.MethodPost,
		Path:          "/api/v1/content/{family}",
		Summary:       "Create an article, listing or advertisement",
		Tags:          []string{"Content"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateEntityInput) (*EntityOutput, error) {
		e, err := svc.Create(ctx, input.ActorID, domain.CreateInput{
			Family:      domain.Family(input.Family),
			Title:       input.Body.Title,
			Status:      domain.Status(input.Body.Status),
			ScheduledAt: input.Body.ScheduledAt,
			StartsAt:    input.Body.StartsAt,
			EndsAt:      input.Body.EndsAt,
			PlanDays:    input.Body.PlanDays,
		})
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &EntityOutput{Body: toEntityResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-entity",
		Method:      http.MethodGet,
		Path:        "/api/v1/content/{family}/{id}",
		Summary:     "Get an entity by ID",
		Tags:        []string{"Content"},
	}, func(ctx context.Context, input *GetEntityInput) (*EntityOutput, error) {
		e, err := svc.Get(ctx, domain.Family(input.Family), input.ID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &EntityOutput{Body: toEntityResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-entity-by-slug",
		Method:      http.MethodGet,
		Path:        "/api/v1/content/{family}/by-slug/{slug}",
		Summary:     "Get a published entity by its public slug",
		Tags:        []string{"Content"},
	}, func(ctx context.Context, input *GetBySlugInput) (*EntityOutput, error) {
		e, err := svc.GetBySlug(ctx, domain.Family(input.Family), input.Slug)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &EntityOutput{Body: toEntityResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-entities",
		Method:      http.MethodGet,
		Path:        "/api/v1/content/{family}",
		Summary:     "List entities of a family",
		Tags:        []string{"Content"},
	}, func(ctx context.Context, input *ListEntitiesInput) (*ListEntitiesOutput, error) {
		filter := domain.ListFilter{
			Family: domain.Family(input.Family),
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		entities, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		resp := make([]EntityResponse, len(entities))
		for i, e := range entities {
			resp[i] = toEntityResponse(e)
		}
		return &ListEntitiesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-entity",
		Method:      http.MethodPost,
		Path:        "/api/v1/content/{family}/{id}/transitions",
		Summary:     "Move an entity to another lifecycle state",
		Tags:        []string{"Content"},
	}, func(ctx context.Context, input *TransitionInput) (*EntityOutput, error) {
		e, err := svc.Transition(ctx, input.ActorID, domain.Family(input.Family), input.ID,
			domain.Status(input.Body.Status),
			domain.TransitionOptions{ScheduledAt: input.Body.ScheduledAt},
		)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &EntityOutput{Body: toEntityResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-entity",
		Method:      http.MethodPut,
		Path:        "/api/v1/content/{family}/{id}/title",
		Summary:     "Change an entity's title",
		Tags:        []string{"Content"},
	}, func(ctx context.Context, input *RenameInput) (*EntityOutput, error) {
		e, err := svc.Rename(ctx, input.ActorID, domain.Family(input.Family), input.ID, input.Body.Title)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &EntityOutput{Body: toEntityResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-entity",
		Method:        http.MethodDelete,
		Path:          "/api/v1/content/{family}/{id}",
		Summary:       "Delete an entity",
		Tags:          []string{"Content"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteEntityInput) (*struct{}, error) {
		if err := svc.Delete(ctx, input.ActorID, domain.Family(input.Family), input.ID); err != nil {
			return nil, toHumaError(ctx, err)
		}
		return nil, nil
	})

	registerAudit(api, audit)
}
