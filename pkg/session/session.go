// Package session holds the current Part and its source for an editing
// client. A Session replaces a process-wide "current part" global; a Store
// keeps several sessions addressable by ID.
package session

import (
	"context"
	"sync"

	"github.com/chazu/partforge/pkg/analysis"
	"github.com/chazu/partforge/pkg/ctxlog"
	"github.com/chazu/partforge/pkg/dsl"
	"github.com/chazu/partforge/pkg/edit"
	"github.com/chazu/partforge/pkg/ir"
)

// Session is the editing state of one document. It is safe for concurrent
// use.
type Session struct {
	mu        sync.Mutex
	part      *ir.Part
	source    string
	validator *analysis.Validator
}

// New returns an empty session validating with v. A nil v uses the
// built-in tolerance table.
func New(v *analysis.Validator) *Session {
	if v == nil {
		v = analysis.NewValidator(nil)
	}
	return &Session{validator: v}
}

// Get returns the current part and source. The part is nil when the session
// is empty. Callers must not modify the returned part.
func (s *Session) Get() (*ir.Part, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.part, s.source
}

// Set replaces the session state. An empty source is regenerated from part.
func (s *Session) Set(part *ir.Part, source string) {
	if source == "" && part != nil {
		source = dsl.Generate(part)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.part, s.source = part, source
}

// Clear empties the session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.part, s.source = nil, ""
}

// Update parses source, validates the result and stores both. On a parse
// error the session keeps its previous state.
func (s *Session) Update(ctx context.Context, source string) ([]ir.ValidationIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, source)
}

func (s *Session) update(ctx context.Context, source string) ([]ir.ValidationIssue, error) {
	logger := ctxlog.FromContext(ctx)
	part, err := dsl.Parse(source)
	if err != nil {
		logger.Debug("session update rejected", "error", err)
		return nil, err
	}
	s.part, s.source = part, source
	issues := s.validator.Validate(part)
	logger.Debug("session updated", "part", part.Name, "issues", len(issues))
	return issues, nil
}

// ApplyOps runs structured edits against the current part, stores the
// result with regenerated source and returns its issues.
func (s *Session) ApplyOps(ctx context.Context, ops ...edit.Op) ([]ir.ValidationIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.part == nil {
		return nil, ErrEmpty
	}
	part, err := edit.Apply(s.part, ops...)
	if err != nil {
		return nil, err
	}
	s.part, s.source = part, dsl.Generate(part)
	ctxlog.FromContext(ctx).Debug("session ops applied", "part", part.Name, "ops", len(ops))
	return s.validator.Validate(part), nil
}

// ApplyTextEdits edits the current source and reparses it. The session is
// unchanged if the edits are invalid or the result does not parse.
func (s *Session) ApplyTextEdits(ctx context.Context, edits []edit.TextEdit) ([]ir.ValidationIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated, err := edit.ApplyTextEdits(s.source, edits)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, updated)
}
