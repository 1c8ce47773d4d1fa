package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Op is a single idempotent configuration step. Ensure reports
// whether it changed anything, so a re-run over converged state logs
// a clean "already in place" trail instead of silently redoing work.
type Op struct {
	Name   string
	Ensure func(ctx context.Context) (changed bool, err error)
}

// Plan is an ordered list of ops executed front to back. Any failure
// aborts the rest: partial state is accepted (the steps are
// individually idempotent, so the operator re-runs the tool).
type Plan struct {
	ops []Op
}

func (p *Plan) Add(name string, ensure func(ctx context.Context) (bool, error)) {
	p.ops = append(p.ops, Op{Name: name, Ensure: ensure})
}

// Names returns the op names in execution order, for dry-run output.
func (p *Plan) Names() []string {
	names := make([]string, len(p.ops))
	for i, op := range p.ops {
		names[i] = op.Name
	}
	return names
}

func (p *Plan) Execute(ctx context.Context) error {
	for _, op := range p.ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := op.Ensure(ctx)
		if err != nil {
			return fmt.Errorf("step %s: %w", op.Name, err)
		}
		if changed {
			log.Info().Str("step", op.Name).Msg("applied")
		} else {
			log.Info().Str("step", op.Name).Msg("already in place")
		}
	}
	return nil
}
