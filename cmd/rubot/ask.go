package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/app"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/orchestrator"
)

func askCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Long: `Ask a question and print the answer.

Examples:
  rubot ask "Qual o preço do almoço?"
  rubot ask "Que horas abre o jantar?"
  rubot ask --json "Onde fica o RU do campus norte?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			res := a.Engine.Process(ctx, orchestrator.Message{Text: strings.Join(args, " ")})

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderResponse(res, verbose))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full processing result as JSON")
	return cmd
}
