package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ruleforge/engine/pkg/funcruntime"
	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/handlers"
	"github.com/ruleforge/engine/pkg/variable"
	"github.com/spf13/cobra"
)

func newEvalCommand() *cobra.Command {
	var inputPath string
	var withTrace bool
	var nodesInContext bool

	cmd := &cobra.Command{
		Use:   "eval <content.json>",
		Short: "Evaluate a content document against a JSON input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading content document: %w", err)
			}
			nodes, edges, err := graph.DecodeDocument(raw)
			if err != nil {
				return err
			}
			g, err := graph.New(nodes, edges)
			if err != nil {
				return err
			}
			g.SetNodesInContext(nodesInContext)
			handlers.RegisterDefault(g, funcruntime.NewLocalProcess())

			input := variable.Null
			if inputPath != "" {
				inputRaw, err := os.ReadFile(inputPath)
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				input, err = variable.ParseJSON(inputRaw)
				if err != nil {
					return fmt.Errorf("parsing input: %w", err)
				}
			}

			result, err := g.Evaluate(context.Background(), input, withTrace)
			if err != nil {
				return err
			}

			out := map[string]any{
				"performance": result.Performance.String(),
				"result":      result.Value.ToJSON(),
			}
			if withTrace {
				trace := map[string]any{}
				for id, entry := range result.Trace {
					trace[id] = map[string]any{
						"id":          entry.ID,
						"name":        entry.Name,
						"order":       entry.Order,
						"input":       entry.Input.ToJSON(),
						"output":      entry.Output.ToJSON(),
						"performance": entry.Performance.String(),
						"traceData":   entry.TraceData,
					}
				}
				out["trace"] = trace
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to a JSON input file (defaults to null)")
	cmd.Flags().BoolVar(&withTrace, "trace", false, "include a per-node execution trace")
	cmd.Flags().BoolVar(&nodesInContext, "nodes-in-context", false, "expose intermediate node outputs under $nodes")

	return cmd
}
