// Command jira-version-manager creates and manages Jira release versions
// from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	versionmanager "github.com/jackalski/jira-version-manager"
	"github.com/jackalski/jira-version-manager/config"
	"github.com/jackalski/jira-version-manager/jira"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	configPath string
	dryRun     bool
	debug      bool

	cfg     *config.Config
	logger  *zap.Logger
	manager *versionmanager.Manager
}

func (a *app) setup() error {
	var err error
	if a.debug {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	a.cfg, err = config.Load(a.configPath)
	if err != nil {
		return err
	}
	catalog, err := a.cfg.Catalog()
	if err != nil {
		return err
	}

	client := jira.NewClient(a.cfg.BaseURL, a.cfg.APIToken, jira.WithLogger(a.logger))
	tracker := jira.NewBreakerTracker(client)

	a.manager = versionmanager.New(tracker, catalog, a.cfg,
		versionmanager.WithLogger(a.logger),
		versionmanager.WithDryRun(a.dryRun),
	)
	return nil
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "jira-version-manager",
		Short:         "Create and manage Jira release versions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path (default ~/"+config.DefaultFileName+")")
	root.PersistentFlags().BoolVar(&a.dryRun, "dry-run", false, "Simulate actions without making changes")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newInfoCommand(a),
		newListCommand(a),
		newCreateCommand(a),
		newNextCommand(a),
		newCleanupCommand(a),
		newArchiveCommand(a),
		newFixCommand(a),
		newDeleteCommand(a),
	)
	return root
}

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Display current configuration",
		RunE: func(*cobra.Command, []string) error {
			redacted := *a.cfg
			if redacted.APIToken != "" {
				redacted.APIToken = "***"
			}
			out, err := json.MarshalIndent(redacted, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-key>",
		Short: "List versions for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := a.manager.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Versions for project %s:\n", args[0])
			for _, v := range versions {
				status := "Unreleased"
				if v.Released {
					status = "Released"
				}
				if v.Archived {
					status += ", Archived"
				}
				fmt.Printf("- %s (%s) [ID: %s]\n", v.Name, status, v.ID)
			}
			return nil
		},
	}
}

func newCreateCommand(a *app) *cobra.Command {
	var date string
	var formats []string
	var window string

	cmd := &cobra.Command{
		Use:   "create [project-key...]",
		Short: "Create versions for a date or the release calendar",
		Long: `Create versions. With --date, one version per resolved format is created
for that date. Without it, the project's release calendar selects the dates
inside the chosen window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects := args
			if len(projects) == 0 {
				projects = a.cfg.ProjectKeys
			}
			if len(projects) == 0 {
				return fmt.Errorf("no projects given and none configured")
			}

			win, err := parseWindow(window)
			if err != nil {
				return err
			}

			results := versionmanager.RunAll(cmd.Context(), projects,
				func(ctx context.Context, project string) (versionmanager.Result, error) {
					if date != "" {
						d, err := time.Parse("2006-01-02", date)
						if err != nil {
							return versionmanager.Result{Project: project}, fmt.Errorf("invalid date %q, use YYYY-MM-DD: %w", date, err)
						}
						return a.manager.CreateForDate(ctx, project, d, formats)
					}
					return a.manager.CreateForCalendar(ctx, project, win)
				})
			printResults(results)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Specific date for the version (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "Format keys overriding the project selection")
	cmd.Flags().StringVar(&window, "window", "next", "Calendar window: current, next or both")
	return cmd
}

func newNextCommand(a *app) *cobra.Command {
	var bump, channel, formatKey, scope string

	cmd := &cobra.Command{
		Use:   "next <project-key>",
		Short: "Create the next semantic version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.manager.CreateNextSemantic(cmd.Context(), args[0],
				versionmanager.Bump(bump), channel, formatKey, scope)
			if err != nil {
				return err
			}
			fmt.Printf("Created version: %s\n", rec.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&bump, "bump", "patch", "Component to bump: major, minor or patch")
	cmd.Flags().StringVar(&channel, "channel", "", "Pre-release channel: alpha, beta or rc")
	cmd.Flags().StringVar(&formatKey, "format", "", "Format key (default \"semantic\")")
	cmd.Flags().StringVar(&scope, "scope", "", "Name prefix restricting resolution")
	return cmd
}

func newCleanupCommand(a *app) *cobra.Command {
	var opts versionmanager.CleanupExtras

	cmd := &cobra.Command{
		Use:   "cleanup [project-key...]",
		Short: "Delete stale versions outside the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects := args
			if len(projects) == 0 {
				projects = a.cfg.ProjectKeys
			}
			results := versionmanager.RunAll(cmd.Context(), projects,
				func(ctx context.Context, project string) (versionmanager.Result, error) {
					return a.manager.Cleanup(ctx, project, opts)
				})
			printResults(results)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.IncludeReleased, "include-released", false, "Also delete released versions")
	cmd.Flags().BoolVar(&opts.IncludeFuture, "include-future", false, "Also delete versions dated in the future")
	cmd.Flags().StringVar(&opts.MoveIssuesTo, "move-to", "", "Version name receiving issues of deleted versions")
	return cmd
}

func newArchiveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive [project-key...]",
		Short: "Archive old released versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects := args
			if len(projects) == 0 {
				projects = a.cfg.ProjectKeys
			}
			results := versionmanager.RunAll(cmd.Context(), projects, a.manager.Archive)
			printResults(results)
			return nil
		},
	}
}

func newFixCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fix [project-key...]",
		Short: "Rename versions whose names drifted from their canonical form",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects := args
			if len(projects) == 0 {
				projects = a.cfg.ProjectKeys
			}
			results := versionmanager.RunAll(cmd.Context(), projects, a.manager.ScanAndFix)
			printResults(results)
			return nil
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	var moveTo string

	cmd := &cobra.Command{
		Use:   "delete <project-key> <version-name>",
		Short: "Delete a single version by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, name := args[0], args[1]
			if err := a.manager.DeleteByName(cmd.Context(), project, name, moveTo); err != nil {
				return err
			}
			if a.dryRun {
				fmt.Printf("DRY RUN: Would delete version: %s\n", name)
				return nil
			}
			fmt.Printf("Deleted version: %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&moveTo, "move-to", "", "Name of the version to move issues to")
	return cmd
}

func parseWindow(s string) (versionmanager.Window, error) {
	switch s {
	case "current":
		return versionmanager.CurrentMonth, nil
	case "next":
		return versionmanager.NextMonth, nil
	case "both":
		return versionmanager.BothMonths, nil
	default:
		return 0, fmt.Errorf("unknown window %q: use current, next or both", s)
	}
}

func printResults(results map[string]versionmanager.Result) {
	projects := make([]string, 0, len(results))
	for p := range results {
		projects = append(projects, p)
	}
	sort.Strings(projects)
	for _, project := range projects {
		res := results[project]
		fmt.Printf("\n%s:\n", project)
		for _, item := range res.Succeeded {
			fmt.Printf("  ok      %s (%s)\n", item.Name, item.Reason)
		}
		for _, item := range res.Skipped {
			fmt.Printf("  skipped %s (%s)\n", item.Name, item.Reason)
		}
		for _, f := range res.Failed {
			fmt.Printf("  FAILED  %s: %v\n", f.Name, f.Err)
		}
	}
}
