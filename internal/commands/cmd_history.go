package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/promptstack/internal/core/conversation"
	"github.com/colonyops/promptstack/internal/store/jsonfile"
	"github.com/colonyops/promptstack/pkg/iojson"
)

type HistoryCmd struct {
	flags *Flags

	// flags
	projectID  string
	limit      int
	jsonOutput bool
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags) *HistoryCmd {
	return &HistoryCmd{flags: flags}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "history",
		Usage:       "Show a project's conversation",
		UsageText:   "promptstack history --project <id> [--limit n] [--json]",
		Description: "Lists the newest conversation turns of a project in chronological order.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "project",
				Aliases:     []string{"p"},
				Usage:       "project id",
				Required:    true,
				Destination: &cmd.projectID,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "number of turns to show (0 for all)",
				Value:       20,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	store := jsonfile.NewConversationStore(cmd.flags.Config.ProjectsDir())

	var (
		turns []conversation.Turn
		err   error
	)
	if cmd.limit > 0 {
		turns, err = store.Recent(ctx, cmd.projectID, cmd.limit)
	} else {
		turns, err = store.List(ctx, cmd.projectID)
	}
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if cmd.jsonOutput {
		if turns == nil {
			turns = []conversation.Turn{}
		}
		return iojson.WriteWith(c.Root().Writer, os.Stderr, turns)
	}

	if len(turns) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "No history")
		return nil
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tROLE\tMESSAGE")
	for _, t := range turns {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", t.Timestamp.Local().Format("2006-01-02 15:04"), t.Role, summarize(t.Content, 80))
	}
	return w.Flush()
}

// summarize collapses whitespace and truncates s to max runes.
func summarize(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
