// Package cli implements the kaizenctl operator commands
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/config"
	"github.com/kaizenflow/kaizen-approvals/internal/container"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/catalog"
	"github.com/kaizenflow/kaizen-approvals/pkg/database"
	"github.com/kaizenflow/kaizen-approvals/pkg/utils"
)

// NewRootCommand builds the kaizenctl command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kaizenctl",
		Short:         "Operate the Kaizen approval service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "configs/config.yaml", "path to the configuration file")
	root.PersistentFlags().Bool("verbose", false, "log at debug level to stderr")

	root.AddCommand(
		newMigrateCommand(),
		newQuestionsCommand(),
		newExportCommand(),
		newSettingsCommand(),
	)
	return root
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			db, err := database.New(database.Config{
				Path:            cfg.Database.Path,
				MaxOpenConns:    cfg.Database.MaxOpenConns,
				MaxIdleConns:    cfg.Database.MaxIdleConns,
				ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			migrator := database.NewMigrator(db, logger)
			pending, err := migrator.Pending(cfg.Database.MigrationsDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				fmt.Fprintln(out, "Database is up to date.")
				return nil
			}
			for _, m := range pending {
				fmt.Fprintf(out, "- %03d %s\n", m.Version, m.Name)
			}
			if dryRun {
				fmt.Fprintf(out, "%d migration(s) pending.\n", len(pending))
				return nil
			}

			if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
				return err
			}
			fmt.Fprintf(out, "Applied %d migration(s).\n", len(pending))
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "list pending migrations without applying them")
	return cmd
}

func newQuestionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions [DEPARTMENT]",
		Short: "Print the evaluation questionnaires",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				cfg, _, err := setup(cmd)
				if err != nil {
					return err
				}
				path = cfg.Workflow.QuestionnairePath
			}

			cat := approval.DefaultCatalog()
			if path != "" {
				loaded, err := catalog.Load(path)
				if err != nil {
					return err
				}
				cat = loaded
			}

			if len(args) == 1 {
				dept := entity.Department(strings.ToUpper(args[0]))
				if !dept.IsValid() {
					return fmt.Errorf("unknown department %q", args[0])
				}
				cat = approval.Catalog{dept: cat.Questions(dept)}
			}

			if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
				raw, err := catalog.Marshal(cat)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			}

			printCatalog(cmd, cat)
			return nil
		},
	}
	cmd.Flags().String("file", "", "questionnaire file, overriding the configured one")
	cmd.Flags().Bool("yaml", false, "print in questionnaire file format")
	return cmd
}

func printCatalog(cmd *cobra.Command, cat approval.Catalog) {
	out := cmd.OutOrStdout()
	for _, dept := range entity.AllDepartments() {
		questions, ok := cat[dept]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%s (%d)\n", dept, len(questions))
		for _, q := range questions {
			marker := " "
			if q.Required {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %-9s %s\n", marker, q.Key, q.Text)
		}
	}
}

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export REQUEST_CODE",
		Short: "Write the approval sheet of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container.Container) error {
				code := strings.ToUpper(args[0])
				out := cmd.OutOrStdout()

				if archive, _ := cmd.Flags().GetBool("archive"); archive {
					location, err := c.Services().Sheets.Archive(ctx, code)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Archived %s to %s\n", code, location)
					return nil
				}

				content, name, err := c.Services().Sheets.Build(ctx, code)
				if err != nil {
					return err
				}
				dir, _ := cmd.Flags().GetString("out")
				path := filepath.Join(dir, name)
				if err := os.WriteFile(path, content, 0o644); err != nil {
					return fmt.Errorf("write approval sheet: %w", err)
				}
				fmt.Fprintf(out, "Wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().String("out", ".", "directory to write the sheet to")
	cmd.Flags().Bool("archive", false, "store the sheet in the configured archive instead")
	return cmd
}

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change workflow settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *container.Container) error {
				settings, err := c.Services().Settings.Settings(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, settings)
			})
		},
	}

	thresholds := &cobra.Command{
		Use:   "thresholds",
		Short: "Change the HOD and AGM cost limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hod, _ := cmd.Flags().GetInt64("hod-limit")
			agm, _ := cmd.Flags().GetInt64("agm-limit")
			user, _ := cmd.Flags().GetString("user")

			return withContainer(cmd, func(ctx context.Context, c *container.Container) error {
				admin := entity.Actor{UserID: user, Role: entity.RoleAdmin}
				settings, err := c.Services().Settings.Update(ctx, admin, entity.SettingsPatch{
					CostThresholds: &entity.CostThresholds{HodLimit: hod, AgmLimit: agm},
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, settings.CostThresholds)
			})
		},
	}
	thresholds.Flags().Int64("hod-limit", 0, "cost up to which the cross-HOD stage may approve")
	thresholds.Flags().Int64("agm-limit", 0, "cost above which the AGM must review")
	thresholds.Flags().String("user", "kaizenctl", "admin user id recorded in the audit trail")
	_ = thresholds.MarkFlagRequired("hod-limit")
	_ = thresholds.MarkFlagRequired("agm-limit")

	cmd.AddCommand(show, thresholds)
	return cmd
}

// setup loads configuration and a stderr logger for a command
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := utils.NewLogger(utils.LoggerConfig{Level: level, OutputPath: "stderr", Format: "console"})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *container.Container) error) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}
