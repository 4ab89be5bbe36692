package document

import (
	"context"

	"github.com/sagelabs/sage/pkg/types"
)

// Typed write methods, one per document family. Each resolves the
// family's path rule and funnels into Write.

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}

func (s *Store) writeFamily(ctx context.Context, user string, family types.Family, name, body string, opts WriteOptions) (*types.Document, error) {
	path, err := ResolvePath(family, name, s.today())
	if err != nil {
		return nil, err
	}
	return s.Write(ctx, user, path, family, body, opts)
}

// WriteDomain writes one life-map domain document. The domain label is
// both the path slug and the header's domain tag.
func (s *Store) WriteDomain(ctx context.Context, user, domain, body string, opts WriteOptions) (*types.Document, error) {
	if opts.Domain == "" {
		opts.Domain = domain
	}
	return s.writeFamily(ctx, user, types.FamilyDomain, domain, body, opts)
}

// WriteOverview writes the life-map overview document.
func (s *Store) WriteOverview(ctx context.Context, user, body string, opts WriteOptions) (*types.Document, error) {
	return s.writeFamily(ctx, user, types.FamilyOverview, "", body, opts)
}

// WriteLifePlan writes a life-plan document; an empty name means the
// default plan.
func (s *Store) WriteLifePlan(ctx context.Context, user, name, body string, opts WriteOptions) (*types.Document, error) {
	return s.writeFamily(ctx, user, types.FamilyLifePlan, name, body, opts)
}

// WriteCheckIn writes a weekly check-in; an empty date defaults to today.
func (s *Store) WriteCheckIn(ctx context.Context, user, date, body string, opts WriteOptions) (*types.Document, error) {
	return s.writeFamily(ctx, user, types.FamilyCheckIn, date, body, opts)
}

// WriteSageContext writes an assistant-context document; an empty name
// means the core context.
func (s *Store) WriteSageContext(ctx context.Context, user, name, body string, opts WriteOptions) (*types.Document, error) {
	return s.writeFamily(ctx, user, types.FamilySageContext, name, body, opts)
}

// WritePatterns writes the observed-patterns document.
func (s *Store) WritePatterns(ctx context.Context, user, body string, opts WriteOptions) (*types.Document, error) {
	return s.writeFamily(ctx, user, types.FamilyPatterns, "", body, opts)
}

// WriteDailyLog writes a daily log; an empty date defaults to today.
func (s *Store) WriteDailyLog(ctx context.Context, user, date, body string, opts WriteOptions) (*types.Document, error) {
	return s.writeFamily(ctx, user, types.FamilyDailyLog, date, body, opts)
}

// WriteDayPlan writes a day plan; an empty date defaults to today.
func (s *Store) WriteDayPlan(ctx context.Context, user, date, body string, opts WriteOptions) (*types.Document, error) {
	return s.writeFamily(ctx, user, types.FamilyDayPlan, date, body, opts)
}

// WriteCapture writes a quick capture under the given name.
func (s *Store) WriteCapture(ctx context.Context, user, name, body string, opts WriteOptions) (*types.Document, error) {
	return s.writeFamily(ctx, user, types.FamilyCapture, name, body, opts)
}
