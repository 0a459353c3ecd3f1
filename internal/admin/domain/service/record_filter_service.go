package service

import (
	"fmt"
	"strings"
	"sync"

	"kinto-admin/internal/kinto"
	apperrors "kinto-admin/internal/shared/errors"

	"github.com/google/cel-go/cel"
)

const maxCachedPrograms = 128

// RecordFilter evaluates CEL "where" expressions against fetched records.
// The record is bound to the variable "record", e.g.
//
//	record.status == "published" && record.last_modified > 1500000000000
type RecordFilter struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewRecordFilter creates the CEL environment for record filters
func NewRecordFilter() (*RecordFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &RecordFilter{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Validate checks that expr compiles to a boolean expression
func (f *RecordFilter) Validate(expr string) error {
	_, err := f.program(expr)
	return err
}

func (f *RecordFilter) program(expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)

	f.mu.RLock()
	prg, ok := f.programs[expr]
	f.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := f.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, apperrors.NewValidationError("Invalid record filter").
			WithDetail("expression", expr).
			WithCause(issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, apperrors.NewValidationError("Record filter must be a boolean expression").
			WithDetail("expression", expr)
	}
	prg, err := f.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	f.mu.Lock()
	if len(f.programs) >= maxCachedPrograms {
		f.programs = make(map[string]cel.Program)
	}
	f.programs[expr] = prg
	f.mu.Unlock()
	return prg, nil
}

// Filter keeps the records for which expr evaluates to true. An empty
// expression keeps everything. Records the expression cannot be evaluated
// on (missing fields) are dropped.
func (f *RecordFilter) Filter(expr string, records []kinto.Resource) ([]kinto.Resource, error) {
	if strings.TrimSpace(expr) == "" {
		return records, nil
	}
	prg, err := f.program(expr)
	if err != nil {
		return nil, err
	}

	kept := make([]kinto.Resource, 0, len(records))
	for _, r := range records {
		out, _, err := prg.Eval(map[string]interface{}{
			"record": map[string]interface{}(r),
		})
		if err != nil {
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			kept = append(kept, r)
		}
	}
	return kept, nil
}
