package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"gnureport/qfx"
)

type rewriteQfxCmd struct {
	rules string
}

func (*rewriteQfxCmd) Name() string     { return "rewrite-qfx" }
func (*rewriteQfxCmd) Synopsis() string { return "rewrite payee names in a QFX download" }
func (*rewriteQfxCmd) Usage() string {
	return `rewrite-qfx [-rules <rules.csv>] <input.qfx>

  Rewrites the <NAME> values of a QFX file using the rules file and writes
  the result next to the input as <input>_modified.qfx. Names matching no
  rule are title-cased and listed so the rules file can be extended.
`
}

func (c *rewriteQfxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rules, "rules", "rules.csv", "CSV rules file with SearchText,Replacement columns")
}

func (c *rewriteQfxCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one input file is required.")
		return subcommands.ExitUsageError
	}
	input := f.Arg(0)

	rulesFile, err := os.Open(c.rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: no rules file %s, see example_rules.csv: %v\n", c.rules, err)
		return subcommands.ExitFailure
	}
	rules, err := qfx.ReadRules(rulesFile)
	rulesFile.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading rules: %v\n", err)
		return subcommands.ExitFailure
	}

	data, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", input, err)
		return subcommands.ExitFailure
	}

	output, missing, err := qfx.Rewrite(string(data), rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rewriting %s: %v\n", input, err)
		return subcommands.ExitFailure
	}

	ext := filepath.Ext(input)
	outPath := strings.TrimSuffix(input, ext) + "_modified" + ext
	if err := os.WriteFile(outPath, []byte(output), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outPath, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Wrote to %s successfully.\n", outPath)

	if len(missing) > 0 {
		fmt.Println("Add the following to your rules list:")
		for _, name := range missing {
			fmt.Printf("%q,%q\n", name, "replacement")
		}
	}
	return subcommands.ExitSuccess
}
