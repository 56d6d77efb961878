package cron

import (
	"context"
	"fmt"

	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

type scheduledPublisher interface {
	PublishDue(ctx context.Context) (int64, error)
}

// BlogPublishJobParams configure the scheduled post publisher.
type BlogPublishJobParams struct {
	Logger *logger.Logger
	Blog   scheduledPublisher
}

// NewBlogPublishJob builds the job that promotes scheduled blog posts whose
// publish time has arrived.
func NewBlogPublishJob(params BlogPublishJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Blog == nil {
		return nil, fmt.Errorf("blog service required")
	}
	return &blogPublishJob{logg: params.Logger, blog: params.Blog}, nil
}

type blogPublishJob struct {
	logg *logger.Logger
	blog scheduledPublisher
}

func (j *blogPublishJob) Name() string { return "blog-publish-due" }

func (j *blogPublishJob) Run(ctx context.Context) error {
	published, err := j.blog.PublishDue(ctx)
	if err != nil {
		return fmt.Errorf("publish due posts: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_published", published)
	j.logg.Info(logCtx, "scheduled post publish complete")
	return nil
}
