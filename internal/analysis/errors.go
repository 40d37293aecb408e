package analysis

import "github.com/lexicone42/setbreak-sub000/internal/errors"

// ErrAnalysisCanceled is logged when a run stops on context cancellation.
var ErrAnalysisCanceled = errors.NewStd("analysis canceled")

// loadError wraps a failure to load the candidate track list. It is fatal
// for the run.
func loadError(err error, operation string) error {
	return errors.New(err).
		Component("analysis").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
