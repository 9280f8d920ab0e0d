package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nexusmap/nexus/internal/migration"
	"github.com/nexusmap/nexus/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [guest-project-id]",
	Short: "Move local guest projects into the shared store",
	Long: `Copy a project edited in local (guest) mode into the PostgreSQL store.

The copy runs in stages: project record, nodes, edges, task details. If a stage
fails the local project is kept untouched and the command can be re-run. The
local copy is only removed once every stage succeeded.

Without an argument the most recently updated guest project is migrated.

Examples:
  nexus migrate --postgres-url postgres://me@db/nexus
  nexus --mode remote migrate
  nexus --mode remote migrate --all`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")
		pgURL, _ := cmd.Flags().GetString("postgres-url")
		owner, _ := cmd.Flags().GetString("owner")
		if owner == "" {
			owner = cfg.Storage.Owner
		}
		ctx := context.Background()

		target, owned, err := migrationTarget(ctx, pgURL)
		exitOnErr("connecting to remote store", err)
		if owned {
			defer target.Close()
		}

		m, err := migration.NewMigrator(&migration.Config{
			Source: local,
			Target: target,
			Events: emitter,
			Logger: logger,
		})
		exitOnErr("creating migrator", err)

		var ids []string
		switch {
		case len(args) == 1:
			ids = []string{args[0]}
		case all:
			projects, err := local.ListProjects(ctx)
			exitOnErr("listing guest projects", err)
			for _, p := range projects {
				ids = append(ids, p.ID)
			}
		default:
			id, err := migration.MostRecentGuestProject(ctx, local)
			if errors.Is(err, migration.ErrNoGuestProject) {
				fmt.Println("No local projects to migrate.")
				return
			}
			exitOnErr("finding guest project", err)
			ids = []string{id}
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		failed := 0
		for _, id := range ids {
			res, err := m.Migrate(ctx, id, owner)
			if err != nil {
				failed++
				var stageErr *migration.StageError
				if errors.As(err, &stageErr) {
					fmt.Printf("%s %s: failed at %s stage: %v (local copy kept)\n", red("✗"), id, stageErr.Stage, stageErr.Err)
				} else {
					fmt.Printf("%s %s: %v\n", red("✗"), id, err)
				}
				continue
			}
			fmt.Printf("%s Migrated %s → %s (%d nodes, %d edges, %d task details)\n",
				green("✓"), res.GuestProjectID, res.RemoteProjectID, res.Nodes, res.Edges, res.Details)
			if res.ClearErr != nil {
				fmt.Printf("%s Local copy could not be removed: %v\n", yellow("⚠"), res.ClearErr)
			}
		}

		if failed > 0 {
			if owned {
				_ = target.Close()
			}
			closeStores()
			os.Exit(1)
		}
	},
}

// migrationTarget returns the remote store: the active backend in remote mode, otherwise
// a new connection to url (or the configured URL) that the caller owns.
func migrationTarget(ctx context.Context, url string) (target *postgres.Storage, owned bool, err error) {
	if pg, ok := remoteStore(); ok && url == "" {
		return pg, false, nil
	}
	if url == "" {
		url = cfg.Storage.PostgresURL
	}
	if url == "" {
		return nil, false, fmt.Errorf("no remote store configured (use --postgres-url or storage.postgres_url)")
	}
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = url
	target, err = postgres.New(ctx, pgCfg)
	return target, err == nil, err
}

func init() {
	migrateCmd.Flags().Bool("all", false, "Migrate every local project")
	migrateCmd.Flags().String("postgres-url", "", "Remote store connection string (default: storage.postgres_url)")
	migrateCmd.Flags().String("owner", "", "Owner recorded on migrated projects (default: storage.owner)")
	rootCmd.AddCommand(migrateCmd)
}
