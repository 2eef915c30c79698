// Command ruleforge is a thin CLI over the decision-graph evaluator: load a
// content document, optionally validate it against the wire schema,
// evaluate it against a JSON input, and print the result (and, optionally,
// a trace). This is the "CLI/binding glue" spec.md names as out of scope
// for the core engine, kept minimal enough that the module ships as a
// runnable repository rather than a library with no entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "ruleforge",
		Short:         "Evaluate and validate decision-graph content documents",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newEvalCommand())
	root.AddCommand(newCheckCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ruleforge: %v\n", err)
		os.Exit(1)
	}
}
