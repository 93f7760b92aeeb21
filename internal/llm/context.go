package llm

import "context"

type purposeKey struct{}

// WithPurpose tags requests made with ctx so recorded usage can be grouped,
// e.g. "tutor" or "analyze".
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the tag set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if p, _ := ctx.Value(purposeKey{}).(string); p != "" {
		return p
	}
	return "unknown"
}
