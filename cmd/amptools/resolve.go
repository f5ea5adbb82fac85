package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-amptools/pkg/loader"
)

func cmdResolve() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME",
		Short: "Show where a template resolves to",
		Long: `Resolve lists the rewritten name and every candidate origin the AMP
loader chain offers for NAME, then reports the template that wins.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			env, _, err := setupEnvironment()
			if err != nil {
				return err
			}
			ctx = requestContext(ctx, env.Settings(), ampMode)

			out := cmd.OutOrStdout()
			prepared, sources := env.Sources(ctx, args[0])
			fmt.Fprintf(out, "name: %s\n", prepared)
			for origin, err := range sources {
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "candidate: %s\n", origin.Name)
			}

			tpl, err := env.GetTemplate(ctx, args[0])
			if err != nil {
				if errors.Is(err, loader.ErrTemplateNotFound) {
					fmt.Fprintf(out, "resolved: none\n")
				}
				return err
			}
			fmt.Fprintf(out, "resolved: %s\n", tpl.Origin().Name)
			return nil
		},
	}
}
