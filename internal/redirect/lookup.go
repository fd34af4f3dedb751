package redirect

import (
	"context"

	"teamboard-cli/internal/model"
	"teamboard-cli/internal/service"
)

// ServiceLookup adapts the resource services to Lookup.
type ServiceLookup struct {
	Svc *service.Services
}

func (l ServiceLookup) Task(ctx context.Context, id int64) (model.Task, error) {
	return l.Svc.Tasks.Get(ctx, id)
}

func (l ServiceLookup) Board(ctx context.Context, id int64) (model.Board, error) {
	return l.Svc.Boards.Get(ctx, id)
}

func (l ServiceLookup) Project(ctx context.Context, id int64) (model.Project, error) {
	return l.Svc.Projects.Get(ctx, id)
}

func (l ServiceLookup) TaskBoard(ctx context.Context, taskID int64) (model.Board, error) {
	return l.Svc.Tasks.Board(ctx, taskID)
}

func (l ServiceLookup) Boards(ctx context.Context) ([]model.Board, error) {
	return l.Svc.Boards.List(ctx)
}

func (l ServiceLookup) Lists(ctx context.Context, boardID int64) ([]model.List, error) {
	return l.Svc.Boards.Lists(ctx, boardID)
}
