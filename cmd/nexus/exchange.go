package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nexusmap/nexus/internal/events"
	"github.com/nexusmap/nexus/internal/exchange"
	"github.com/nexusmap/nexus/internal/types"
)

var exportCmd = &cobra.Command{
	Use:   "export [project]",
	Short: "Write a project and its plan to a JSON document",
	Long: `Export a project as a JSON document that 'nexus import' (or the web app) can read.

The file name is derived from the project name unless --output is given. Use
--output - to write to stdout.

Examples:
  nexus export                      # Most recently updated project
  nexus export Website -o site.json
  nexus export 3fa8 -o -`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		ctx := context.Background()

		p, err := findProject(ctx, argOr(args, 0))
		exitOnErr("finding project", err)
		g, err := backend.Load(ctx, p.ID)
		exitOnErr("loading plan", err)

		data, err := exchange.Export(*p, *g)
		exitOnErr("encoding document", err)

		if output == "-" {
			_, _ = os.Stdout.Write(append(data, '\n'))
			return
		}
		if output == "" {
			output = exchange.FileName(p.Name)
		}
		exitOnErr("writing document", os.WriteFile(output, data, 0644))

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Exported %s (%d nodes, %d edges) to %s\n", green("✓"), p.Name, len(g.Nodes), len(g.Edges), output)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create a project from an exported JSON document",
	Long: `Import a document written by 'nexus export' (or the web app) as a new project.

The whole document is validated before anything is written: a malformed node or
an edge pointing at a missing node rejects the import and leaves every store
unchanged. Legacy task statuses ("To Do", "Done", ...) are normalised.

Examples:
  nexus import website.json
  nexus import backup.json --name "Website (restored)"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		ctx := context.Background()

		data, err := os.ReadFile(args[0])
		exitOnErr("reading document", err)

		doc, err := exchange.Import(data)
		if err != nil {
			var verr *exchange.ValidationError
			if errors.As(err, &verr) {
				emitter.Emit(ctx, events.NewEvent(events.EventTypeImportRejected, "", "exchange",
					events.SeverityWarning, fmt.Sprintf("Rejected %s", args[0]),
					map[string]interface{}{"path": verr.Path, "reason": verr.Reason}))
			}
			exitOnErr("invalid document", err)
		}
		if name != "" {
			doc.Project.Name = name
		}

		p, err := importDocument(ctx, doc)
		exitOnErr("importing document", err)

		emitter.Emit(ctx, events.NewEvent(events.EventTypeImportCompleted, p.ID, "exchange",
			events.SeverityInfo, fmt.Sprintf("Imported %q from %s", p.Name, args[0]),
			map[string]interface{}{"nodes": len(doc.Graph.Nodes), "edges": len(doc.Graph.Edges)}))

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Imported %s (%s): %d phases, %d tasks\n",
			green("✓"), p.Name, p.ID, p.PhaseCount, p.TaskCount)
	},
}

// importDocument creates a project for doc and installs its graph. The project is removed
// again if the graph cannot be saved.
func importDocument(ctx context.Context, doc *types.Document) (*types.Project, error) {
	p, err := createProject(ctx, doc.Project.Name, doc.Project.Description, doc.Project.Color)
	if err != nil {
		return nil, err
	}
	if err := backend.Save(ctx, p.ID, &doc.Graph); err != nil {
		if delErr := backend.DeleteProject(ctx, p.ID); delErr != nil {
			logger.Warn("failed to remove partially imported project", "project_id", p.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to save imported plan: %w", err)
	}
	p.Recount(doc.Graph)
	return p, nil
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: derived from the project name, - for stdout)")
	importCmd.Flags().String("name", "", "Name for the new project (default: the document's name)")
	rootCmd.AddCommand(exportCmd, importCmd)
}
