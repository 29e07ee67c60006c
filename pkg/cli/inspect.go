package cli

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

func newInspectCommand(a *app) *Command {
	cmd := newCommand(a, "inspect", "Print a product's merged native model as YAML")
	productName := cmd.Flags.String("product", "", "Product code name")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *productName == "" {
			return fmt.Errorf("-product is required")
		}

		return a.withSession(func(s *session) error {
			inspection, err := s.pipeline.Inspect(context.Background(), *productName)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(inspection); err != nil {
				return fmt.Errorf("failed to encode inspection: %w", err)
			}
			return enc.Close()
		})
	}
	return cmd
}
