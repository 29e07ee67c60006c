package cli

import (
	"context"
	"fmt"
)

func newValidateCommand(a *app) *Command {
	cmd := newCommand(a, "validate", "Validate product and feature descriptors")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		return a.withSession(func(s *session) error {
			issues, err := s.pipeline.Validate(context.Background())
			if err != nil {
				return err
			}

			failed := 0
			for _, issue := range issues {
				fmt.Fprintf(a.out, "%s: %s\n", issue.Path, issue.ValidationError)
				if issue.Severity == "error" {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("validation failed with %d errors", failed)
			}
			fmt.Fprintln(a.out, "All descriptors are valid")
			return nil
		})
	}
	return cmd
}
