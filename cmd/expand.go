package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patsak/tablegen"
	"github.com/patsak/tablegen/internal/ctxlog"
)

func newExpandCommand() *cobra.Command {
	var resultType string
	cmd := &cobra.Command{
		Use:   "expand [flags] EXPR...",
		Short: "Print the Go expression a single form expands to",
		Example: `  tablegen expand --type '[][]int' '(table (* x y) (x (range 1 2)) (y (range 1 x)))'
  tablegen expand '(defmacro add (a b) (+ a b 1)) (fold add! 1 (2))'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctxlog.FromContext(cmd.Context())
			src := strings.Join(args, " ")
			out, err := tablegen.ExpandExpr(src, resultType, tablegen.Logger(logger))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&resultType, "type", "t", "", "Go result type, required for table and array forms")
	return cmd
}
