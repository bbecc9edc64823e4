package twinmap

import (
	"context"

	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/logging"
	"github.com/agentstation/twinmap/pkg/present"
	"github.com/agentstation/twinmap/pkg/reconciler"
)

// Publish compares city and adds partner, which must be listed by the
// article only, to the graph. partner is a display name or canonical key.
func (c *client) Publish(ctx context.Context, city string, partner string) (*present.SubmitResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithOperation(ctx, "publish")

	result, err := c.Compare(ctx, city)
	if err != nil {
		return nil, err
	}

	entry, ok := c.findEntry(result, partner)
	if !ok {
		return nil, errors.NewNotFoundError("partner", partner)
	}
	if entry.Status != reconciler.StatusArticleOnly || entry.Article == nil {
		return nil, &errors.ValidationError{
			Field:   "partner",
			Value:   entry.Name(),
			Message: "is " + string(entry.Status) + ", only ARTICLE_ONLY partners can be published",
		}
	}

	return c.submitter.Submit(ctx, result.City, *entry.Article)
}
