package flow

import (
	"context"
	"fmt"

	apperrors "rendezvous/pkg/errors"
)

// Step is one named stage of a Flow. It mutates the shared state S.
type Step[S any] struct {
	Name    string
	Execute func(ctx context.Context, state *S) error
}

func NewStep[S any](name string, execute func(ctx context.Context, state *S) error) Step[S] {
	return Step[S]{Name: name, Execute: execute}
}

// Flow is an ordered list of steps that stops at the first failure.
type Flow[S any] struct {
	name  string
	steps []Step[S]
}

func New[S any](name string, steps ...Step[S]) *Flow[S] {
	return &Flow[S]{name: name, steps: steps}
}

func (f *Flow[S]) Name() string {
	return f.name
}

func (f *Flow[S]) Steps() []string {
	names := make([]string, len(f.steps))
	for i, s := range f.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes the steps in order. AppErrors are returned untouched so callers keep their code;
// anything else is wrapped with the failing step's name.
func (f *Flow[S]) Run(ctx context.Context, state *S) error {
	for _, step := range f.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: cancelled before step %s: %w", f.name, step.Name, err)
		}
		if err := step.Execute(ctx, state); err != nil {
			if apperrors.IsAppError(err) {
				return err
			}
			return &StepError{Flow: f.name, Step: step.Name, Err: err}
		}
	}
	return nil
}

type StepError struct {
	Flow string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s step failed: %v", e.Flow, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
