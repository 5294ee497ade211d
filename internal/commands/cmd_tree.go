package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/promptstack/internal/agent"
	"github.com/colonyops/promptstack/internal/core/logging"
	"github.com/colonyops/promptstack/internal/printer"
	"github.com/colonyops/promptstack/internal/store/jsonfile"
)

type TreeCmd struct {
	flags *Flags

	// flags
	projectID string
	refresh   bool
}

// NewTreeCmd creates a new tree command
func NewTreeCmd(flags *Flags) *TreeCmd {
	return &TreeCmd{flags: flags}
}

// Register adds the tree command to the application
func (cmd *TreeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tree",
		Usage:     "Print a project's file structure",
		UsageText: "promptstack tree --project <id> [--refresh]",
		Description: `Prints the file structure cached from the last run.

Use --refresh to rebuild it from the repository's current tree.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "project",
				Aliases:     []string{"p"},
				Usage:       "project id",
				Required:    true,
				Destination: &cmd.projectID,
			},
			&cli.BoolFlag{
				Name:        "refresh",
				Usage:       "rebuild the structure from the remote repository",
				Destination: &cmd.refresh,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *TreeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	projects := jsonfile.NewProjectStore(cfg.ProjectsDir())

	rec, err := projects.Get(ctx, cmd.projectID)
	if err != nil {
		return fmt.Errorf("load project %s: %w", cmd.projectID, err)
	}

	structure := rec.Structure
	if cmd.refresh {
		gh, err := newGitHubClient(cfg, cmd.flags.Credentials, logging.Component("github"))
		if err != nil {
			return err
		}

		ex := agent.NewExecutor(gh.Repository(rec.Owner, rec.Repo, cfg.GitHub.DefaultBranch), agent.ExecutorOptions{
			Projects: projects,
			Logger:   logging.Component("agent"),
		})
		tree, err := ex.Refresh(ctx, rec.ID)
		if err != nil {
			return err
		}
		structure = tree.Render()
		printer.Ctx(ctx).Successf("refreshed %d files from %s", tree.Len(), rec.FullName())
	}

	if structure == "" {
		_, _ = fmt.Fprintln(os.Stderr, "No structure cached; run with --refresh")
		return nil
	}

	_, err = fmt.Fprintln(c.Root().Writer, structure)
	return err
}
