package bootstrap

import (
	"context"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/tasks"
)

// TaskFilter narrows the operator task listing.
type TaskFilter struct {
	UserID string
	Status string
	Limit  int
}

// ListTasks returns tasks for the operator CLI, newest first.
func ListTasks(ctx context.Context, opts Options, filter TaskFilter) ([]domain.CrawlTask, error) {
	app, err := load(opts)
	if err != nil {
		return nil, err
	}
	defer app.log.Sync() //nolint:errcheck

	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := database.Connect(dctx, app.cfg.Metadata, app.log)
	if err != nil {
		return nil, err
	}
	defer db.Close(context.Background()) //nolint:errcheck

	userID := filter.UserID
	if userID == "" {
		userID = tasks.DefaultUserID
	}
	return database.NewTaskRepository(db).List(ctx, userID, domain.TaskStatus(filter.Status), filter.Limit, 0)
}
