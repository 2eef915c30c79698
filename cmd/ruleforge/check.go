package main

import (
	"fmt"
	"os"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/schema"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	var skipSchema bool

	cmd := &cobra.Command{
		Use:   "check <content.json>",
		Short: "Validate a content document without evaluating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading content document: %w", err)
			}

			if !skipSchema {
				if err := schema.ValidateContent(raw); err != nil {
					return err
				}
			}

			nodes, edges, err := graph.DecodeDocument(raw)
			if err != nil {
				return err
			}
			if err := graph.Validate(nodes, edges); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes, %d edges\n", len(nodes), len(edges))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSchema, "skip-schema", false, "skip JSON-Schema validation of the wire format")
	return cmd
}
