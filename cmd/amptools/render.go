package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func cmdRender() *cobra.Command {
	var (
		dataFile    string
		values      []string
		output      string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "render [NAME]",
		Short: "Render a template to stdout or a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			isAMP := ampMode
			if interactive {
				var err error
				name, isAMP, err = promptRender(ctx, name, isAMP)
				if err != nil {
					return err
				}
			}
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("template name is required")
			}

			data, err := loadData(dataFile, values)
			if err != nil {
				return err
			}

			env, logger, err := setupEnvironment()
			if err != nil {
				return err
			}
			ctx = requestContext(ctx, env.Settings(), isAMP)

			rendered, err := env.RenderTemplate(ctx, name, data)
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), rendered)
				return nil
			}
			if err := atomic.WriteFile(output, strings.NewReader(rendered)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			logger.Info().Str("template", name).Str("output", output).Msg("Template rendered")
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "YAML or JSON file with template data")
	cmd.Flags().StringArrayVar(&values, "set", nil, "Template value as key=value (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (stdout if empty)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for the template and mode")

	return cmd
}

// loadData merges the data file with --set values, which take precedence.
func loadData(path string, values []string) (map[string]any, error) {
	data := map[string]any{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode data %q: %w", path, err)
		}
		if data == nil {
			data = map[string]any{}
		}
	}
	for _, kv := range values {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", kv)
		}
		data[key] = value
	}
	return data, nil
}
