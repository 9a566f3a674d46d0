// Package prove decides reachability claims against a rewrite system by
// bounded symbolic execution.
package prove

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/kprove/internal/executor"
	"github.com/gnoswap-labs/kprove/internal/kast"
	"github.com/gnoswap-labs/kprove/internal/simplifier"
)

var tracer = otel.Tracer("github.com/gnoswap-labs/kprove/prove")

// ErrMalformed is returned, wrapped, for ill-formed claims, rules and lemmas.
var ErrMalformed = kast.ErrMalformed

// Observer receives execution events and the end of every proof.
type Observer interface {
	executor.Observer
	ProofFinished(proved bool, elapsed time.Duration)
}

// Prover proves claims against one definition. It is safe for
// concurrent use.
type Prover struct {
	def      *kast.Definition
	cfg      Config
	logger   *zap.Logger
	observer Observer
}

// New returns a prover for def. A nil logger disables logging.
func New(def *kast.Definition, cfg Config, logger *zap.Logger) (*Prover, error) {
	if def == nil {
		return nil, errors.New("prove: nil definition")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Prover{def: def, cfg: cfg, logger: logger}, nil
}

// WithObserver returns a copy of p reporting to o.
func (p *Prover) WithObserver(o Observer) *Prover {
	cp := *p
	cp.observer = o
	return &cp
}

// Definition returns the rule database the prover uses.
func (p *Prover) Definition() *kast.Definition { return p.def }

// Config returns the prover's configuration.
func (p *Prover) Config() Config { return p.cfg }

// Prove runs claim against rules with the default configuration and the
// given depth bound. Lemmas among rules and the invocation lemmas are both
// used for simplification.
func Prove(ctx context.Context, claim kast.Claim, rules, lemmas []kast.Rule, bound int) (*Result, error) {
	def, err := kast.NewDefinition("", nil, rules)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	cfg := DefaultConfig()
	cfg.MaxDepth = bound
	p, err := New(def, cfg, nil)
	if err != nil {
		return nil, err
	}
	return p.ProveClaim(ctx, claim, lemmas)
}

// ProveClaim explores every execution of claim's source pattern and reports
// the terminal branches. Lemmas extend the definition's lemmas for this
// call only. Malformed input is rejected before anything runs.
func (p *Prover) ProveClaim(ctx context.Context, claim kast.Claim, lemmas []kast.Rule) (*Result, error) {
	if err := p.validate(claim, lemmas); err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}

	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "prove.ProveClaim")
	defer span.End()
	span.SetAttributes(
		attribute.String("kprove.claim", claim.Label),
		attribute.String("kprove.run_id", runID),
		attribute.Int("kprove.max_depth", p.cfg.MaxDepth),
		attribute.Int("kprove.lemmas", len(lemmas)),
	)

	var logger *zap.Logger
	if p.logger != nil {
		logger = p.logger.With(zap.String("run_id", runID), zap.String("claim", claim.Label))
	}

	decider := p.cfg.decider()
	simp := simplifier.New(append(p.def.Lemmas(), lemmas...), simplifier.Options{
		MaxApplications: p.cfg.MaxSimplifications,
		Signature:       p.def.Signature,
		Decider:         decider,
		Logger:          logger,
	})
	opts := executor.Options{
		MaxDepth:  p.cfg.depth(),
		Workers:   p.cfg.Workers,
		Signature: p.def.Signature,
		Decider:   decider,
		Logger:    logger,
	}
	if p.observer != nil {
		opts.Observer = p.observer
	}
	exec := executor.New(p.def.Steps(), simp, opts)

	var constraints []kast.Condition
	if claim.Requires != nil {
		constraints = kast.Conjuncts(claim.Requires)
	}

	start := time.Now()
	run, err := exec.Run(ctx, claim.LHS, constraints, executor.GoalFromClaim(claim))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("prove %s: %w", claim.Label, err)
	}
	elapsed := time.Since(start)

	res := &Result{
		Claim:      claim,
		RunID:      runID,
		Terminals:  run.Terminals,
		Incomplete: run.Incomplete,
		Steps:      run.Steps,
		Pruned:     run.Pruned,
		Elapsed:    elapsed,
		run:        run,
	}
	proved := res.Proved()
	span.SetAttributes(
		attribute.Bool("kprove.proved", proved),
		attribute.Int("kprove.terminals", len(res.Terminals)),
		attribute.Int("kprove.steps", res.Steps),
	)
	if res.Incomplete {
		span.SetStatus(codes.Error, "incomplete")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if p.observer != nil {
		p.observer.ProofFinished(proved, elapsed)
	}
	if logger != nil {
		logger.Info("proof finished",
			zap.Bool("proved", proved),
			zap.Int("terminals", len(res.Terminals)),
			zap.Int("steps", res.Steps),
			zap.Int("pruned", res.Pruned),
			zap.Bool("incomplete", res.Incomplete),
			zap.Duration("elapsed", elapsed))
	}
	return res, nil
}

func (p *Prover) validate(claim kast.Claim, lemmas []kast.Rule) error {
	if err := kast.ValidateClaim(p.def.Signature, claim); err != nil {
		return err
	}
	for _, l := range lemmas {
		if !l.IsLemma() {
			subject := "lemma"
			if l.Label != "" {
				subject += " " + l.Label
			}
			return &kast.MalformedError{Subject: subject, Reason: "missing simplification attribute"}
		}
		if err := kast.ValidateRule(p.def.Signature, l); err != nil {
			return err
		}
	}
	return nil
}
