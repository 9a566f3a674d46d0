package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/kprove/internal/definition"
)

var checkLemmaFiles []string

var checkCmd = &cobra.Command{
	Use:   "check <definition.yaml>",
	Short: "Validate a rule database and lemma files without proving",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCheck(os.Stdout, args[0], checkLemmaFiles); err != nil {
			logger.Error("Check failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	checkCmd.Flags().StringSliceVar(&checkLemmaFiles, "lemmas", nil, "Lemma files to validate against the definition")
}

func runCheck(out io.Writer, path string, lemmaPaths []string) error {
	bundle, err := definition.Load(path)
	if err != nil {
		return err
	}
	lemmas := 0
	for _, lp := range lemmaPaths {
		ls, err := definition.LoadLemmas(lp, bundle.Definition.Signature)
		if err != nil {
			return err
		}
		lemmas += len(ls)
	}
	def := bundle.Definition
	_, err = fmt.Fprintf(out, "%s: %d productions, %d rules, %d lemmas, %d claims",
		def.Name, len(def.Signature), len(def.Steps()), len(def.Lemmas()), len(bundle.Claims))
	if err != nil {
		return err
	}
	if len(lemmaPaths) > 0 {
		_, err = fmt.Fprintf(out, ", %d invocation lemmas", lemmas)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(out)
	return err
}
