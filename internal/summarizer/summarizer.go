// Package summarizer defines the summarization boundary: plain text in,
// short summary out. The pipeline never inspects why a summarization failed,
// only that it did.
package summarizer

import "context"

// Summarizer produces a short summary of message text. An empty result or an
// error both mean the message should be skipped, not that the run should
// abort.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}
