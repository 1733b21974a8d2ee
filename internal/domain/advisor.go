package domain

import "context"

// Advisor produces a free-form operational report from a prepared context.
// Replies are expected to hold one JSON object matching AdvisoryReport,
// possibly wrapped in a markdown code fence.
type Advisor interface {
	Advise(ctx context.Context, scope string, advisory AdvisoryContext) (string, error)
}
