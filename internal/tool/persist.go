package tool

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sagelabs/sage/internal/document"
	"github.com/sagelabs/sage/internal/event"
	"github.com/sagelabs/sage/internal/logging"
	"github.com/sagelabs/sage/pkg/types"
)

// MaxContentBytes is the largest document body a tool call may persist.
const MaxContentBytes = 48 * 1024

const persistDescription = `Save or update one of the user's documents.

Usage:
- file_type selects the document family (domain, overview, life-plan, check-in, sage-context, patterns, daily-log, day-plan, capture)
- name is the semantic name within the family (the domain label, a date, a capture title); date-based families default to today
- content replaces the document body
- status, rating and tags update the document's metadata when given`

// PersistDocumentTool writes a document through the store after resolving
// and permission-checking its path.
type PersistDocumentTool struct {
	store *document.Store
	now   func() time.Time
}

// PersistInput is the raw tool input before validation.
type PersistInput struct {
	FileType string          `json:"file_type"`
	Name     string          `json:"name,omitempty"`
	Content  string          `json:"content"`
	Status   string          `json:"status,omitempty"`
	Rating   *float64        `json:"rating,omitempty"`
	Tags     json.RawMessage `json:"tags,omitempty"`
}

// persistRequest is the validated, coerced form of a persist call: one
// closed variant per document family rather than a string-keyed bag.
type persistRequest struct {
	family types.Family
	name   string
	body   string
	opts   document.WriteOptions
}

// NewPersistDocumentTool creates the persist_document tool.
func NewPersistDocumentTool(store *document.Store) *PersistDocumentTool {
	return &PersistDocumentTool{store: store, now: time.Now}
}

func (t *PersistDocumentTool) Name() string        { return NamePersistDocument }
func (t *PersistDocumentTool) Description() string { return persistDescription }

func (t *PersistDocumentTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"file_type": {
				"type": "string",
				"description": "Document family: domain, overview, life-plan, check-in, sage-context, patterns, daily-log, day-plan, or capture"
			},
			"name": {
				"type": "string",
				"description": "Semantic name within the family, e.g. the domain label or a YYYY-MM-DD date"
			},
			"content": {
				"type": "string",
				"description": "Full document body in markdown"
			},
			"status": {
				"type": "string",
				"description": "Optional status: thriving, stable, needs_attention, or in_crisis"
			},
			"rating": {
				"type": "number",
				"description": "Optional 0-10 rating"
			},
			"tags": {
				"type": "array",
				"description": "Optional list of tags"
			}
		},
		"required": ["file_type", "content"]
	}`)
}

func (t *PersistDocumentTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params PersistInput
	if err := json.Unmarshal(input, &params); err != nil {
		return Fail(CodeInvalidInput, "malformed persist_document input: %v", err), nil
	}

	req, failure := t.validate(params)
	if failure != nil {
		return failure, nil
	}

	path, err := document.ResolvePath(req.family, req.name, t.today())
	if err != nil {
		return Fail(CodeInvalidInput, "cannot resolve document path: %v", err), nil
	}

	effective := toolCtx.EffectiveType()
	if !AllowedPath(effective, path) {
		return Fail(CodePermissionDenied,
			"session type %q may not write %q (allowed prefixes: %s)",
			effective, path, strings.Join(AllowedPrefixes(effective), ", ")), nil
	}

	doc, err := t.write(ctx, toolCtx.User, req)
	if err != nil {
		return nil, err
	}

	event.Publish(event.Event{
		Type: event.DocumentSaved,
		Data: event.DocumentSavedData{
			SessionID: toolCtx.SessionID,
			Path:      doc.Path,
			Version:   doc.Header.Version,
		},
	})
	if req.family == types.FamilyDomain {
		event.Publish(event.Event{
			Type: event.DomainUpdate,
			Data: event.DomainUpdateData{
				SessionID: toolCtx.SessionID,
				Domain:    doc.Header.Domain,
				Path:      doc.Path,
				Status:    doc.Header.Status,
			},
		})
	}

	if req.family == types.FamilyDailyLog && effective == types.SessionCloseDay {
		t.foldCaptures(ctx, toolCtx.User)
	}

	return &Result{
		Success: true,
		Message: "saved " + doc.Path,
		Data: map[string]any{
			"path":    doc.Path,
			"version": doc.Header.Version,
		},
	}, nil
}

// validate coerces raw input into a persistRequest, or explains what is
// wrong in a failure result.
func (t *PersistDocumentTool) validate(params PersistInput) (*persistRequest, *Result) {
	family := types.Family(strings.ToLower(strings.TrimSpace(params.FileType)))
	if !types.KnownFamily(family) {
		return nil, Fail(CodeInvalidInput, "unknown file_type %q", params.FileType)
	}

	if strings.TrimSpace(params.Content) == "" {
		return nil, Fail(CodeInvalidInput, "content must not be empty")
	}
	if len(params.Content) > MaxContentBytes {
		return nil, Fail(CodeInvalidInput, "content exceeds %d bytes", MaxContentBytes)
	}

	name := strings.TrimSpace(params.Name)
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return nil, Fail(CodeInvalidInput, "name %q must not contain path separators or parent-directory sequences", params.Name)
	}
	if family == types.FamilyCapture && name == "" {
		name = t.today() + "-" + newCaptureID()
	}

	opts := document.WriteOptions{}

	if params.Status != "" {
		status := strings.ToLower(strings.TrimSpace(params.Status))
		switch types.DomainStatus(status) {
		case types.DomainThriving, types.DomainStable, types.DomainNeedsAttention, types.DomainInCrisis:
			opts.Status = status
		default:
			return nil, Fail(CodeInvalidInput, "unknown status %q", params.Status)
		}
	}

	if params.Rating != nil {
		if *params.Rating < 0 || *params.Rating > 10 {
			return nil, Fail(CodeInvalidInput, "rating %g out of range 0-10", *params.Rating)
		}
		opts.Rating = params.Rating
	}

	if len(params.Tags) > 0 {
		tags, ok := coerceTags(params.Tags)
		if !ok {
			return nil, Fail(CodeInvalidInput, "tags must be a list of strings or a comma-separated string")
		}
		opts.Tags = tags
	}

	return &persistRequest{family: family, name: name, body: params.Content, opts: opts}, nil
}

// write routes the request to the family's typed writer.
func (t *PersistDocumentTool) write(ctx context.Context, user string, req *persistRequest) (*types.Document, error) {
	switch req.family {
	case types.FamilyDomain:
		return t.store.WriteDomain(ctx, user, req.name, req.body, req.opts)
	case types.FamilyOverview:
		return t.store.WriteOverview(ctx, user, req.body, req.opts)
	case types.FamilyLifePlan:
		return t.store.WriteLifePlan(ctx, user, req.name, req.body, req.opts)
	case types.FamilyCheckIn:
		return t.store.WriteCheckIn(ctx, user, req.name, req.body, req.opts)
	case types.FamilySageContext:
		return t.store.WriteSageContext(ctx, user, req.name, req.body, req.opts)
	case types.FamilyPatterns:
		return t.store.WritePatterns(ctx, user, req.body, req.opts)
	case types.FamilyDailyLog:
		return t.store.WriteDailyLog(ctx, user, req.name, req.body, req.opts)
	case types.FamilyDayPlan:
		return t.store.WriteDayPlan(ctx, user, req.name, req.body, req.opts)
	default:
		return t.store.WriteCapture(ctx, user, req.name, req.body, req.opts)
	}
}

// foldCaptures marks today's captures as folded into the daily log.
// Best-effort: failures are logged and never surfaced as a tool failure.
func (t *PersistDocumentTool) foldCaptures(ctx context.Context, user string) {
	paths, err := t.store.List(ctx, user, document.PrefixCaptures)
	if err != nil {
		logging.Warn().Err(err).Str("user", user).Msg("capture fold sweep: list failed")
		return
	}

	today := t.today()
	for _, path := range paths {
		doc, err := t.store.Read(ctx, user, path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("capture fold sweep: read failed")
			continue
		}
		if doc.Header.Status == "folded" || doc.Header.LastUpdated.Format("2006-01-02") != today {
			continue
		}
		if err := t.store.UpdateStatus(ctx, user, path, "folded"); err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("capture fold sweep: update failed")
		}
	}
}

func (t *PersistDocumentTool) today() string {
	return t.now().Format("2006-01-02")
}

func coerceTags(raw json.RawMessage) ([]string, bool) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimAll(list), true
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return trimAll(strings.Split(single, ",")), true
	}

	return nil, false
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
