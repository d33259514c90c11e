package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"centrovision-data/internal/app"
	"centrovision-data/internal/config"
	"centrovision-data/internal/connectivity"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/localdb"
	"centrovision-data/internal/logger"
	"centrovision-data/internal/remote"
	"centrovision-data/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "centrovisionctl",
		Short:        "Operator tool for the clinic data layer",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("mode", "", "pin the data path (remote, local or offline)")
	rootCmd.PersistentFlags().String("token", os.Getenv("CENTROVISION_TOKEN"), "remote access token")

	rootCmd.AddCommand(modeCmd())
	rootCmd.AddCommand(suppliersCmd())
	rootCmd.AddCommand(inventoryCmd())
	rootCmd.AddCommand(localCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup builds the application for one command. forceShell opens the local
// datastore even when the environment does not declare a shell.
func setup(cmd *cobra.Command, forceShell bool) (context.Context, *app.App, error) {
	cfg := config.Load()
	if forceShell {
		cfg.Desktop.Shell = true
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "centrovisionctl")
	if err != nil {
		log = zap.NewNop()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	if pinned, _ := cmd.Flags().GetString("mode"); pinned != "" {
		m := connectivity.Mode(pinned)
		switch m {
		case connectivity.ModeRemote, connectivity.ModeLocal, connectivity.ModeOffline:
			a.PinMode(m)
		default:
			a.Close()
			return nil, nil, fmt.Errorf("unknown mode %q", pinned)
		}
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		ctx = remote.WithAccessToken(ctx, token)
	}
	return ctx, a, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func modeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Show the resolved connectivity mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			mode := a.Runner.Mode()
			fmt.Printf("mode:  %s\n", mode)
			fmt.Printf("path:  %s\n", dualaccess.PathFor(mode))
			fmt.Printf("shell: %t\n", a.Resolver.ShellPresent())
			return nil
		},
	}
}

func suppliersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suppliers",
		Short: "List suppliers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Services.Inventory.ListSuppliers(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPHONE\tEMAIL")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Phone, s.Email)
			}
			return tw.Flush()
		},
	}
}

func inventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inventory spreadsheets",
	}

	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Write an empty import spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			_, a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := a.Services.Inventory.ImportTemplate(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("Template written to %s\n", out)
			return nil
		},
	}
	templateCmd.Flags().String("out", "inventario_plantilla.xlsx", "output file")
	cmd.AddCommand(templateCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a branch's items as a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			branch, _ := cmd.Flags().GetString("branch")
			out, _ := cmd.Flags().GetString("out")
			inactive, _ := cmd.Flags().GetBool("include-inactive")
			ctx, a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			filters := repository.ItemFilters{BranchID: branch, IncludeInactive: inactive}
			if err := a.Services.Inventory.ExportItems(ctx, filters, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("Inventory written to %s\n", out)
			return nil
		},
	}
	exportCmd.Flags().String("branch", "", "branch id")
	exportCmd.Flags().String("out", "inventario.xlsx", "output file")
	exportCmd.Flags().Bool("include-inactive", false, "include deactivated items")
	cmd.AddCommand(exportCmd)

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an import spreadsheet without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			branch, _ := cmd.Flags().GetString("branch")
			file, _ := cmd.Flags().GetString("file")
			ctx, a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			report, err := a.Services.Inventory.ValidateImport(ctx, branch, f)
			if err != nil {
				return err
			}
			fmt.Printf("%d rows: %d valid, %d with issues\n", report.Total, report.Valid, report.Invalid)
			for _, row := range report.Rows {
				for _, issue := range row.Issues {
					line := fmt.Sprintf("  row %d %s: %s", row.Row, issue.Field, issue.Message)
					if issue.Suggestion != "" {
						line += fmt.Sprintf(" (did you mean %q?)", issue.Suggestion)
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}
	validateCmd.Flags().String("branch", "", "branch id")
	validateCmd.Flags().String("file", "", "spreadsheet to check")
	_ = validateCmd.MarkFlagRequired("file")
	cmd.AddCommand(validateCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import the valid rows of a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			branch, _ := cmd.Flags().GetString("branch")
			file, _ := cmd.Flags().GetString("file")
			ctx, a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			result, err := a.Services.Inventory.ImportValid(ctx, branch, f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d item(s), skipped %d.\n", result.Imported, result.Skipped)
			return nil
		},
	}
	importCmd.Flags().String("branch", "", "branch id")
	importCmd.Flags().String("file", "", "spreadsheet to import")
	_ = importCmd.MarkFlagRequired("file")
	cmd.AddCommand(importCmd)

	return cmd
}

func localCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Manage the desktop datastore",
	}

	// local migrate
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the local schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Printf("Local datastore ready at %s\n", a.Config.Desktop.LocalDBPath)
			return nil
		},
	})

	// local seed
	cmd.AddCommand(&cobra.Command{
		Use:   "seed <file.json>",
		Short: "Load reference rows from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := localdb.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			ctx, a, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Local.Seed(ctx, data); err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			fmt.Printf("Seeded %s\n", args[0])
			return nil
		},
	})

	// local session
	cmd.AddCommand(&cobra.Command{
		Use:   "session <user-id>",
		Short: "Set the user the desktop session acts as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Local.SetSession(ctx, args[0]); err != nil {
				return err
			}
			a.PinMode(connectivity.ModeLocal)
			p, err := a.Services.Admin.CurrentUser(ctx)
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	})

	// local document
	cmd.AddCommand(&cobra.Command{
		Use:   "document <bucket> <object-path> <local-file>",
		Short: "Map a stored object to a file on this machine",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[2]); err != nil {
				return err
			}
			ctx, a, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Local.RegisterDocument(ctx, args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Printf("%s/%s -> %s\n", args[0], args[1], args[2])
			return nil
		},
	})

	return cmd
}
