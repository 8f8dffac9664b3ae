// Command borncli is a minimal command-line entry point over the
// autograd engine, analogous to the teacher's cmd/born stub. Command
// orchestration (data loading, training loops, checkpoint formats) is
// out of scope; this surface only reports build metadata and points
// at the package tests for worked usage.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.0.1-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "borncli",
		Short: "born-autograd command-line entry point",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newVersionCmd())
	root.AddCommand(newInfoCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "born-autograd %s\n", version)
			return nil
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the engine's scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "born-autograd: a dense-tensor, reverse-mode autodiff engine.")
			fmt.Fprintln(out, "Packages: shape, tensor, device/cpu, param, graph, optim.")
			fmt.Fprintln(out, "See graph/graph_test.go for worked forward/backward examples.")
			fmt.Fprintln(out, "Training loops, data loading, and checkpointing are out of scope here.")
			return nil
		},
	}
}
