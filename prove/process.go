package prove

import (
	"context"
	"io"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoswap-labs/kprove/internal/kast"
)

// ProcessOptions controls ProcessClaims.
type ProcessOptions struct {
	// Parallel bounds the claims proved at once. 0 uses every CPU.
	Parallel int
	// Progress receives a progress bar. Nil disables it.
	Progress io.Writer
}

// ProcessClaims proves every claim with the same lemmas. Results are
// returned in claim order. The first error cancels the remaining proofs.
func ProcessClaims(
	ctx context.Context,
	logger *zap.Logger,
	prover *Prover,
	claims []kast.Claim,
	lemmas []kast.Rule,
	opts ProcessOptions,
) ([]*Result, error) {
	results := make([]*Result, len(claims))
	if len(claims) == 0 {
		return results, nil
	}

	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(claims),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("proving"),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, claim := range claims {
		g.Go(func() error {
			res, err := prover.ProveClaim(gctx, claim, lemmas)
			if err != nil {
				if logger != nil {
					logger.Error("Error proving claim", zap.String("claim", claim.Label), zap.Error(err))
				}
				return err
			}
			results[i] = res
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return results, nil
}
