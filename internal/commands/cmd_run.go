package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/promptstack/internal/agent"
	"github.com/colonyops/promptstack/internal/core/eventbus"
	"github.com/colonyops/promptstack/internal/core/logging"
	"github.com/colonyops/promptstack/internal/core/styles"
	"github.com/colonyops/promptstack/internal/printer"
	"github.com/colonyops/promptstack/internal/store/jsonfile"
	"github.com/colonyops/promptstack/pkg/iojson"
)

// runInput is the JSON document accepted by `run --file`.
type runInput struct {
	Project string `json:"project"`
	Repo    string `json:"repo"`
	Prompt  string `json:"prompt"`
}

type RunCmd struct {
	flags *Flags
	input iojson.FileReader[runInput]

	// flags
	projectID  string
	repo       string
	prompt     string
	jsonOutput bool
	wait       bool
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags) *RunCmd {
	return &RunCmd{flags: flags}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run a request against a project's repository",
		UsageText: "promptstack run --project <id> [--repo owner/name] [--prompt text] [--json]",
		Description: `Sends the request to the coding agent, applies its file changes to the
GitHub repository and waits for the CI build, retrying with the build errors
until it passes or the attempt budget runs out.

The first run of a project needs --repo to bind it to a repository.
Without --prompt on a terminal, a form asks for the request.
Use --file to read {"project", "repo", "prompt"} from a JSON file.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "project",
				Aliases:     []string{"p"},
				Usage:       "project id",
				Destination: &cmd.projectID,
			},
			&cli.StringFlag{
				Name:        "repo",
				Usage:       "repository as owner/name or a git remote URL",
				Destination: &cmd.repo,
			},
			&cli.StringFlag{
				Name:        "prompt",
				Usage:       "request for the agent",
				Destination: &cmd.prompt,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the outcome as JSON",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "wait",
				Usage:       "wait for another run on the same repository to finish instead of failing",
				Destination: &cmd.wait,
			},
			cmd.input.Flag(),
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if c.IsSet("file") {
		in, err := cmd.input.Read()
		if err != nil {
			return err
		}
		cmd.merge(in)
	}

	if cmd.projectID == "" {
		return fmt.Errorf("--project is required")
	}

	if strings.TrimSpace(cmd.prompt) == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("no prompt provided; use --prompt or --file")
		}
		if err := cmd.runForm(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	cfg := cmd.flags.Config
	projects := jsonfile.NewProjectStore(cfg.ProjectsDir())
	conversations := jsonfile.NewConversationStore(cfg.ProjectsDir())

	rec, err := resolveProject(ctx, projects, cmd.projectID, cmd.repo, cfg.GitHub.Owner)
	if err != nil {
		return err
	}

	var lock *jsonfile.Lock
	if cmd.wait {
		lock, err = jsonfile.AcquireLock(ctx, cfg.LocksDir(), lockName(rec), time.Second)
	} else {
		lock, err = jsonfile.TryLock(cfg.LocksDir(), lockName(rec))
	}
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	gh, err := newGitHubClient(cfg, cmd.flags.Credentials, logging.Component("github"))
	if err != nil {
		return err
	}
	repo := gh.Repository(rec.Owner, rec.Repo, cfg.GitHub.DefaultBranch)

	chat, err := newChatClient(ctx, cfg, cmd.flags.Credentials, logging.Component("llm"))
	if err != nil {
		return err
	}

	bus := eventbus.New(256)
	eventbus.RegisterDebugLogger(bus, logging.Component("eventbus"))
	eventbus.NewNarrationRouter(bus).Register()
	p.AttachProgress(bus)

	busCtx, stopBus := context.WithCancel(context.WithoutCancel(ctx))
	busDone := make(chan struct{})
	go func() {
		bus.Start(busCtx)
		close(busDone)
	}()

	orch := agent.New(agent.Options{
		Chat:          chat,
		Repo:          repo,
		Conversations: conversations,
		Projects:      projects,
		Agent:         cfg.Agent,
		Build:         cfg.Build,
		Workflow:      cfg.GitHub.Workflow,
		Bus:           bus,
		Logger:        logging.Component("agent"),
	})

	p.Infof("%s %s", styles.IconGithub, repo.FullName())
	outcome, runErr := orch.Run(ctx, rec.ID, cmd.prompt)

	stopBus()
	<-busDone

	if runErr != nil && !errors.Is(runErr, agent.ErrLoopBudgetExhausted) {
		if cmd.jsonOutput {
			_ = iojson.WriteError(os.Stderr, runErr.Error(), map[string]any{
				"project":    rec.ID,
				"request_id": outcome.RequestID,
			})
			return cli.Exit("", 1)
		}
		return fmt.Errorf("run: %w", runErr)
	}

	if cmd.jsonOutput {
		if err := iojson.WriteWith(c.Root().Writer, os.Stderr, outcome); err != nil {
			return err
		}
	} else {
		printOutcome(c.Root().Writer, outcome, isTerminal(c.Root().Writer))
	}

	if outcome.Status == agent.StatusIncomplete {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *RunCmd) merge(in runInput) {
	if cmd.projectID == "" {
		cmd.projectID = in.Project
	}
	if cmd.repo == "" {
		cmd.repo = in.Repo
	}
	if cmd.prompt == "" {
		cmd.prompt = in.Prompt
	}
}

func (cmd *RunCmd) runForm() error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Request").
				Description("What should the agent build or change?").
				Validate(validatePrompt).
				Value(&cmd.prompt),
		),
	).Run()
}

func validatePrompt(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("request is required")
	}
	return nil
}

// printOutcome writes a status header, the changed files and the agent's
// remarks, rendered as markdown when w is a terminal.
func printOutcome(w io.Writer, o agent.Outcome, tty bool) {
	_, _ = fmt.Fprintln(w)

	switch o.Status {
	case agent.StatusSuccess:
		_, _ = fmt.Fprintln(w, styles.TextSuccessStyle.Render("✔ Request completed"))
	case agent.StatusNeedsInput:
		_, _ = fmt.Fprintln(w, styles.TextWarningStyle.Render("● The agent needs more information"))
	default:
		msg := fmt.Sprintf("✘ Request incomplete (%s)", o.Bound)
		_, _ = fmt.Fprintln(w, styles.TextErrorStyle.Render(msg))
	}

	_, _ = fmt.Fprintln(w, styles.TextMutedStyle.Render(fmt.Sprintf(
		"attempts %d  loops %d  created %d  edited %d  deleted %d",
		o.Attempts, o.Loops, len(o.Created), len(o.Edited), len(o.Deleted),
	)))

	for _, f := range o.Failed {
		_, _ = fmt.Fprintln(w, styles.TextErrorStyle.Render("  "+f))
	}

	if o.Build != nil && o.Build.URL != "" {
		_, _ = fmt.Fprintln(w, styles.TextMutedStyle.Render("build: "+o.Build.URL))
	}
	if o.Bound == agent.BoundBuildAttempts && o.Build != nil && strings.TrimSpace(o.Build.ErrorLogs) != "" {
		_, _ = fmt.Fprintln(w, styles.TextErrorStyle.Render("last build errors:"))
		_, _ = fmt.Fprintln(w, strings.TrimRight(o.Build.ErrorLogs, "\n"))
	}
	if o.Deployable {
		_, _ = fmt.Fprintln(w, styles.TextWarningStyle.Render("the last pushed state may still be deployed on a best-effort basis"))
	}

	if strings.TrimSpace(o.Remarks) != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, renderMarkdown(o.Remarks, tty))
	}
}
