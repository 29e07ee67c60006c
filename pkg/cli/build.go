package cli

import (
	"context"
	"fmt"

	"github.com/platinummonkey/cog/pkg/pipeline"
)

func newPreBuildCommand(a *app) *Command {
	cmd := newCommand(a, "prebuild", "Generate dependency XMLs and the Android library manifest")
	target := cmd.Flags.String("target", "", "Build target: android, ios or tvos")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *target == "" {
			return fmt.Errorf("-target is required")
		}

		return a.withSession(func(s *session) error {
			report, err := s.pipeline.PreBuild(context.Background(), *target)
			if err != nil {
				return err
			}

			for _, p := range report.Products {
				fmt.Fprintf(a.out, "%s (%s): %d configurations, %d entries\n",
					p.Product, report.Platform, p.Configurations, p.Entries)
				printList(a, "Written", p.Written)
				printList(a, "Unchanged", p.Unchanged)
			}
			return nil
		})
	}
	return cmd
}

func newPostBuildCommand(a *app) *Command {
	cmd := newCommand(a, "postbuild", "Apply merged configurations to an exported native project")
	target := cmd.Flags.String("target", "", "Build target: android, ios or tvos")
	output := cmd.Flags.String("output", "", "Exported project directory")
	development := cmd.Flags.Bool("development", false, "Development build (push environment)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *target == "" || *output == "" {
			return fmt.Errorf("-target and -output are required")
		}

		return a.withSession(func(s *session) error {
			result, err := s.pipeline.PostBuild(context.Background(), pipeline.BuildReport{
				Platform:    *target,
				OutputPath:  *output,
				Development: *development,
			})
			if err != nil {
				return err
			}

			for _, c := range result.Capabilities {
				fmt.Fprintf(a.out, "Capability %s\n", c)
			}
			printList(a, "Written", result.Written)
			printList(a, "Unchanged", result.Unchanged)
			return nil
		})
	}
	return cmd
}
