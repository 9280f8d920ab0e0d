package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nexusmap/nexus/internal/control"
)

// socketPath is the control socket of a watch process serving projectID.
func socketPath(projectID string) string {
	return control.SocketPath(filepath.Dir(cfg.Storage.LocalPath), projectID)
}

var syncCmd = &cobra.Command{
	Use:   "sync <save|refresh|status>",
	Short: "Control a running 'nexus watch' process",
	Long: `Send a command to the 'nexus watch' process that has the project open.

  save     write pending edits now
  refresh  drop pending edits and reload from the store (bypasses echo suppression)
  status   show pending, dirty and last-save state

Examples:
  nexus sync status
  nexus -p Website sync refresh`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{control.CommandSave, control.CommandRefresh, control.CommandStatus},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p, err := findProject(ctx, projectRef)
		exitOnErr("finding project", err)

		client := control.NewClient(socketPath(p.ID))
		var resp *control.Response
		switch args[0] {
		case control.CommandSave:
			resp, err = client.Save(p.ID)
		case control.CommandRefresh:
			resp, err = client.Refresh(p.ID)
		case control.CommandStatus:
			resp, err = client.Status(p.ID)
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown sync command %q (use save, refresh or status)\n", args[0])
			closeStores()
			os.Exit(1)
		}
		exitOnErr("contacting watcher", err)
		if !resp.Success {
			msg := resp.Error
			if msg == "" {
				msg = resp.Message
			}
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
			closeStores()
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("%s %s: %s\n", green("✓"), p.Name, resp.Message)
		for _, key := range []string{"pending", "dirty", "saving", "last_save"} {
			if v, ok := resp.Data[key]; ok {
				fmt.Printf("  %s %v\n", gray(key+":"), v)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
