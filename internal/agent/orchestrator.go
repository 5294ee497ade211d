package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/promptstack/internal/core/config"
	"github.com/colonyops/promptstack/internal/core/conversation"
	"github.com/colonyops/promptstack/internal/core/eventbus"
	"github.com/colonyops/promptstack/internal/core/logging"
	"github.com/colonyops/promptstack/internal/core/parser"
	"github.com/colonyops/promptstack/internal/core/project"
	"github.com/colonyops/promptstack/internal/core/toolcall"
	"github.com/colonyops/promptstack/internal/core/vtree"
	"github.com/colonyops/promptstack/internal/llm"
)

// ErrLoopBudgetExhausted is returned when the model did not produce a usable
// reply within the per-attempt loop budget.
var ErrLoopBudgetExhausted = errors.New("loop budget exhausted")

// Status is the final state of a request.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusNeedsInput Status = "needs_input"
	StatusIncomplete Status = "incomplete"
)

// Bound names the budget that ended an incomplete request.
type Bound string

const (
	BoundParseLoop     Bound = "parse_loop"
	BoundBuildAttempts Bound = "build_attempts"
)

// Request is the state owned by a single run.
type Request struct {
	ID        string
	ProjectID string
	Prompt    string
	Tree      *vtree.Tree
}

// Outcome is the result of a run.
type Outcome struct {
	RequestID string       `json:"request_id"`
	Status    Status       `json:"status"`
	Bound     Bound        `json:"bound,omitempty"`
	Remarks   string       `json:"remarks"`
	Attempts  int          `json:"attempts"`
	Loops     int          `json:"loops"`
	Build     *BuildResult `json:"build,omitempty"`
	Created   []string     `json:"created,omitempty"`
	Edited    []string     `json:"edited,omitempty"`
	Deleted   []string     `json:"deleted,omitempty"`
	Failed    []string     `json:"failed,omitempty"`
	// Deployable marks an incomplete run whose last state may still be
	// deployed on a best-effort basis.
	Deployable bool `json:"deployable"`
}

func (o *Outcome) absorb(r BatchReport) {
	o.Created = append(o.Created, r.Created...)
	o.Edited = append(o.Edited, r.Edited...)
	o.Deleted = append(o.Deleted, r.Deleted...)
	for _, f := range r.Failed {
		o.Failed = append(o.Failed, f.Error())
	}
}

// Options wires an Orchestrator.
type Options struct {
	Chat          llm.ChatClient
	Repo          Repository
	Conversations conversation.Store
	Projects      project.Store
	Agent         config.AgentConfig
	Build         config.BuildConfig
	Workflow      string
	Parser        *parser.Parser
	Clock         Clock
	Bus           *eventbus.EventBus
	Logger        zerolog.Logger
}

// Orchestrator drives plan, read, generate, mutate and verify until the
// build passes or a budget runs out.
type Orchestrator struct {
	chat     llm.ChatClient
	convs    conversation.Store
	projects project.Store
	cfg      config.AgentConfig
	parser   *parser.Parser
	clock    Clock
	bus      *eventbus.EventBus
	log      zerolog.Logger

	reader   *Reader
	executor *Executor
	verifier *Verifier
}

// New creates an Orchestrator. Zero agent budgets take the defaults.
func New(opts Options) *Orchestrator {
	defaults := config.DefaultConfig().Agent
	cfg := opts.Agent
	if cfg.MaxLoops <= 0 {
		cfg.MaxLoops = defaults.MaxLoops
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaults.HistoryWindow
	}
	if cfg.ProjectBrief == "" {
		cfg.ProjectBrief = defaults.ProjectBrief
	}
	if opts.Parser == nil {
		opts.Parser = parser.New()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}

	return &Orchestrator{
		chat:     opts.Chat,
		convs:    opts.Conversations,
		projects: opts.Projects,
		cfg:      cfg,
		parser:   opts.Parser,
		clock:    opts.Clock,
		bus:      opts.Bus,
		log:      opts.Logger,
		reader: NewReader(opts.Repo, ReaderOptions{
			Concurrency: cfg.ReadConcurrency,
			Timeout:     cfg.ReadTimeout,
			Bus:         opts.Bus,
			Logger:      opts.Logger,
		}),
		executor: NewExecutor(opts.Repo, ExecutorOptions{
			ProtectedPaths: cfg.ProtectedPaths,
			Projects:       opts.Projects,
			Bus:            opts.Bus,
			Logger:         opts.Logger,
		}),
		verifier: NewVerifier(opts.Repo, VerifierOptions{
			Workflow:     opts.Workflow,
			PollInterval: opts.Build.PollInterval,
			Timeout:      opts.Build.Timeout,
			ContextLines: opts.Build.ContextLines,
			MaxLogChars:  opts.Build.MaxLogChars,
			Clock:        opts.Clock,
			Bus:          opts.Bus,
			Logger:       opts.Logger,
		}),
	}
}

// Run executes one request for a project. Upstream failures such as
// exhausted LLM retries are returned as errors; budget exhaustion is
// reported in the Outcome, with ErrLoopBudgetExhausted for the loop budget.
func (o *Orchestrator) Run(ctx context.Context, projectID, prompt string) (Outcome, error) {
	req := &Request{ID: uuid.NewString(), ProjectID: projectID, Prompt: prompt, Tree: vtree.New()}
	ctx = logging.WithRequestID(ctx, req.ID)
	ctx = logging.WithProjectID(ctx, projectID)
	out := Outcome{RequestID: req.ID}

	if err := o.loadTree(ctx, req); err != nil {
		return out, err
	}

	history, err := o.convs.Recent(ctx, projectID, o.cfg.HistoryWindow)
	if err != nil {
		return out, fmt.Errorf("load conversation: %w", err)
	}

	request := prompt
	if len(history) == 0 && o.cfg.ShouldExpandFirstPrompt() {
		request = o.expand(ctx, prompt)
	}
	o.record(ctx, conversation.RoleUser, request)
	o.narrate(req, "We start by reading the files needed for your request: "+prompt)

	var buildLogs string
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		out.Attempts = attempt
		o.log.Info().Ctx(ctx).Int("attempt", attempt).Msg("starting attempt")

		task := TaskPrompt(o.cfg.ProjectBrief, req.Tree.Render(), request, buildLogs)

		contextFiles, err := o.plan(ctx, req, task)
		if err != nil {
			return out, err
		}

		messages := append(historyMessages(history), llm.User(ContextPrompt(contextFiles, task)))
		resp, loops, err := o.generate(ctx, req, messages, request)
		out.Loops += loops
		if errors.Is(err, ErrLoopBudgetExhausted) {
			out.Status = StatusIncomplete
			out.Bound = BoundParseLoop
			out.Remarks = "Max AI loop count reached. Task may be incomplete."
			return out, err
		}
		if err != nil {
			return out, err
		}

		out.Remarks = resp.Remarks
		if resp.Remarks != "" {
			o.narrate(req, "We got a response from our engineer: "+resp.Remarks)
		}

		switch {
		case resp.Complete():
			out.Status = StatusSuccess
			return out, nil
		case resp.NeedsInput():
			out.Status = StatusNeedsInput
			return out, nil
		}

		target := BuildTarget{Since: o.clock.Now()}
		report, err := o.executor.Apply(ctx, req, resp.Mutations())
		out.absorb(report)
		if err != nil {
			return out, fmt.Errorf("apply changes: %w", err)
		}
		if report.Changed() {
			target.HeadSHA = report.HeadSHA
		} else {
			// nothing new was pushed, so judge the current head
			target = BuildTarget{}
		}

		o.narrate(req, "Our engineer has finished the changes, now let's test them")

		build := o.verifier.Verify(ctx, req.ID, attempt, target)
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Build = &build

		if build.Status == BuildSuccess {
			out.Status = StatusSuccess
			return out, nil
		}

		buildLogs = build.ErrorLogs
		if buildLogs == "" {
			buildLogs = fmt.Sprintf("The build did not pass (status: %s).", build.Status)
		}
		if len(report.Failed) > 0 {
			buildLogs += "\n\nThese file operations failed:\n" + strings.Join(failedLines(report.Failed), "\n")
		}
		o.narrate(req, "We got this error:\n"+build.ErrorLogs+"\nWe are trying to resolve it, reading the files first")
		o.log.Warn().Ctx(ctx).Int("attempt", attempt).Str("status", string(build.Status)).Msg("build did not pass")
	}

	out.Status = StatusIncomplete
	out.Bound = BoundBuildAttempts
	out.Deployable = true
	return out, nil
}

// loadTree seeds req.Tree from the project record, reconciling from the
// remote when no structure has been cached yet.
func (o *Orchestrator) loadTree(ctx context.Context, req *Request) error {
	var rec project.Record
	if o.projects != nil {
		var err error
		rec, err = o.projects.Get(ctx, req.ProjectID)
		if err != nil && !errors.Is(err, project.ErrNotFound) {
			return fmt.Errorf("load project: %w", err)
		}
	}
	if len(rec.Files) > 0 {
		req.Tree = vtree.FromPaths(rec.Files)
		return nil
	}
	o.executor.reconcile(ctx, req)
	return nil
}

// expand turns a first prompt into a requirements brief, falling back to the
// raw prompt when the model call fails.
func (o *Orchestrator) expand(ctx context.Context, prompt string) string {
	brief, err := o.chat.Chat(ctx, []llm.Message{llm.User(ExpandPrompt(prompt))})
	if err != nil || strings.TrimSpace(brief) == "" {
		o.log.Warn().Ctx(ctx).Err(err).Msg("could not expand first prompt, using it as is")
		return prompt
	}
	return strings.TrimSpace(brief)
}

// plan asks for the files the task needs and returns them as a context
// block. A reply that cannot be parsed still reads the always-read files.
func (o *Orchestrator) plan(ctx context.Context, req *Request, task string) (string, error) {
	reply, err := o.chat.Chat(ctx, []llm.Message{llm.User(PlanPrompt(task))})
	if err != nil {
		return "", fmt.Errorf("plan: %w", err)
	}

	var reads []toolcall.Call
	if res, err := o.parser.Parse(reply); err != nil {
		o.log.Debug().Ctx(ctx).Err(err).Msg("plan reply not parseable, reading defaults only")
	} else {
		reads = res.Response.Reads()
	}
	for _, p := range o.cfg.AlwaysRead {
		reads = append(reads, toolcall.Call{Tool: toolcall.ToolRead, Path: p})
	}

	results := o.reader.Read(ctx, req.ID, reads)
	return FormatReads(results), nil
}

// generate sends messages and loops on corrective and read follow-ups until
// the model returns a mutation batch or a terminal reply.
func (o *Orchestrator) generate(ctx context.Context, req *Request, messages []llm.Message, request string) (toolcall.Response, int, error) {
	reply, err := o.chat.Chat(ctx, messages)
	if err != nil {
		return toolcall.Response{}, 0, fmt.Errorf("generate: %w", err)
	}

	loops := 0
	fallback := false
	for {
		res, perr := o.parser.Parse(reply)

		var next string
		switch {
		case perr != nil:
			o.log.Debug().Ctx(ctx).Err(perr).Int("loop", loops).Msg("reply rejected")
			next = CorrectivePrompt(perr)
		case len(res.Response.Reads()) > 0:
			o.record(ctx, conversation.RoleAgent, reply)
			fallback = fallback || res.Fallback()
			results := o.reader.Read(ctx, req.ID, res.Response.Reads())
			next = ReadFollowUpPrompt(results, request)
		default:
			o.record(ctx, conversation.RoleAgent, reply)
			if fallback || res.Fallback() {
				o.remind(ctx)
			}
			return res.Response, loops, nil
		}

		// The first reply counts against the budget too.
		if loops+1 >= o.cfg.MaxLoops {
			return toolcall.Response{}, loops, fmt.Errorf("%w after %d replies", ErrLoopBudgetExhausted, loops+1)
		}
		loops++

		reply, err = o.chat.Chat(ctx, []llm.Message{llm.User(next)})
		if err != nil {
			return toolcall.Response{}, loops, fmt.Errorf("generate: %w", err)
		}
	}
}

func (o *Orchestrator) remind(ctx context.Context) {
	if _, err := o.chat.Chat(ctx, []llm.Message{llm.User(FallbackReminder)}); err != nil {
		o.log.Debug().Ctx(ctx).Err(err).Msg("format reminder failed")
	}
}

func (o *Orchestrator) record(ctx context.Context, role conversation.Role, content string) {
	if err := o.convs.Append(ctx, logging.GetProjectID(ctx), conversation.NewTurn(role, content)); err != nil {
		o.log.Warn().Ctx(ctx).Err(err).Str("role", string(role)).Msg("failed to record conversation turn")
	}
}

func (o *Orchestrator) narrate(req *Request, text string) {
	o.bus.PublishAgentMessage(eventbus.AgentMessagePayload{RequestID: req.ID, Text: text})
}

func historyMessages(turns []conversation.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns)+1)
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == conversation.RoleAgent {
			role = llm.RoleAgent
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return msgs
}

func failedLines(failed []OpError) []string {
	out := make([]string, len(failed))
	for i, f := range failed {
		out[i] = "- " + f.Error()
	}
	return out
}
