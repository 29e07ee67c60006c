package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/cog/pkg/observer"
)

func newSyncCommand(a *app) *Command {
	cmd := newCommand(a, "sync", "Create or update a product's settings and apply them")
	productName := cmd.Flags.String("product", "", "Product code name")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *productName == "" {
			return fmt.Errorf("-product is required")
		}

		return a.withSession(func(s *session) error {
			report, err := s.pipeline.Sync(context.Background(), *productName)
			if err != nil {
				return err
			}

			res := report.Features
			fmt.Fprintf(a.out, "Synced %s\n", report.Product)
			printList(a, "Added features", res.Added)
			printList(a, "Removed features", res.Removed)
			printList(a, "Relinked features", res.Relinked)
			printList(a, "Updated importers", report.Activated)
			printList(a, "Updated configurations", report.Updated)
			return nil
		})
	}
	return cmd
}

func newActivateCommand(a *app) *Command {
	cmd := newCommand(a, "activate", "Apply feature enablement to asmdefs and native plugin importers")
	productName := cmd.Flags.String("product", "", "Product code name")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *productName == "" {
			return fmt.Errorf("-product is required")
		}

		return a.withSession(func(s *session) error {
			updated, err := s.pipeline.Activate(context.Background(), *productName)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Activated %s: %d files updated\n", *productName, len(updated))
			printList(a, "Updated", updated)
			return nil
		})
	}
	return cmd
}

func newCleanupCommand(a *app) *Command {
	cmd := newCommand(a, "cleanup", "Drop settings entries of features that no longer exist")
	root := cmd.Flags.String("root", "", "Product root, or a deleted feature path under the products root")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *root == "" {
			return fmt.Errorf("-root is required")
		}

		return a.withSession(func(s *session) error {
			ctx := context.Background()
			fs := s.pipeline.Features()

			if strings.Contains(*root, "/Features/") {
				results, err := observer.CleanupMissingFeatures(ctx, fs, s.pipeline.ProductsRoot(), []string{*root}, nil)
				if err != nil {
					return err
				}
				for _, r := range results {
					printList(a, "Removed features from "+r.ProductRoot, r.Result.Removed)
				}
				if len(results) == 0 {
					fmt.Fprintln(a.out, "Nothing to clean up")
				}
				return nil
			}

			res, err := fs.CleanupMissingFeatures(ctx, *root)
			if err != nil {
				return err
			}
			if !res.Changed() {
				fmt.Fprintln(a.out, "Nothing to clean up")
				return nil
			}
			printList(a, "Removed features", res.Removed)
			printList(a, "Relinked features", res.Relinked)
			return nil
		})
	}
	return cmd
}

func printList(a *app, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(a.out, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(a.out, "  %s\n", item)
	}
}
