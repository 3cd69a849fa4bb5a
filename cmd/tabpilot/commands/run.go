package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/entrhq/tabpilot/pkg/agent"
	"github.com/entrhq/tabpilot/pkg/agent/approval"
	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/entrhq/tabpilot/pkg/bus"
	"github.com/entrhq/tabpilot/pkg/config"
	"github.com/entrhq/tabpilot/pkg/llm/tokenizer"
	"github.com/entrhq/tabpilot/pkg/logging"
	"github.com/entrhq/tabpilot/pkg/tools/browser"
	"github.com/entrhq/tabpilot/pkg/tools/memorystore"
	"github.com/entrhq/tabpilot/pkg/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// turnSettle bounds how long the final answer waits for trailing events.
const turnSettle = 2 * time.Second

var runLog *logging.Logger

func init() {
	runLog = logging.NewLogger("cli")
}

type runFlags struct {
	overrides     config.ProviderOverrides
	startURL      string
	headed        bool
	maxIterations int
	yes           bool
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the agent on a task, or start an interactive session",
		Long: `Launch Chromium and run the agent on the given task. Without a prompt,
tasks are read from the terminal one per line until "exit" or EOF.

Ctrl+C cancels the running task; press it again to quit.

Examples:
  tabpilot run "log in to the staging dashboard and export last week's report"
  tabpilot run --headed --url example.com
  tabpilot run --model gpt-4o-mini --yes "check the weather in Lisbon"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if f.headed {
				headless := false
				cfg.Browser.Headless = &headless
			}
			if f.maxIterations > 0 {
				cfg.Agent.MaxIterations = f.maxIterations
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			return runAgent(cmd.Context(), cfg, f, strings.Join(args, " "), verbose, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&f.overrides.Model, "model", "", "LLM model (overrides "+config.EnvModel+" and llm.model)")
	cmd.Flags().StringVar(&f.overrides.BaseURL, "base-url", "", "OpenAI-compatible API base URL")
	cmd.Flags().StringVar(&f.overrides.APIKey, "api-key", "", "API key (or set "+config.EnvAPIKey+")")
	cmd.Flags().StringVar(&f.startURL, "url", "", "page to open in the first tab before running")
	cmd.Flags().BoolVar(&f.headed, "headed", false, "show the browser window")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", 0, "stop after this many model calls")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "approve every tool call without asking")

	return cmd
}

// session holds everything one CLI invocation wires together.
type session struct {
	cfg      *config.Config
	agent    *agent.Agent
	manager  *browser.TabManager
	renderer *renderer
	turnDone chan struct{}
	id       string
}

func runAgent(ctx context.Context, cfg *config.Config, f runFlags, prompt string, verbose bool, stdin io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer setupLogging(cfg)()

	provider, err := config.BuildProvider(cfg.LLM, f.overrides, cfg.Agent.ClientID)
	if err != nil {
		return err
	}
	policy, err := cfg.StreamingPolicy()
	if err != nil {
		return err
	}
	tok, err := tokenizer.New()
	if err != nil {
		runLog.Warnf("Exact token counting unavailable, estimating: %v", err)
	}

	store, err := memorystore.NewFileStore(cfg.Memory.Dir, cfg.Memory.MaxPerDomain)
	if err != nil {
		return err
	}

	manager := browser.NewTabManager(browserOptions(cfg))
	fmt.Fprintln(out, tipsStyle.Render("Starting browser..."))
	if err := manager.Start(); err != nil {
		return err
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			runLog.Warnf("Browser shutdown: %v", err)
		}
	}()
	toolset := browser.NewToolSet(manager)

	s := &session{
		cfg:      cfg,
		manager:  manager,
		renderer: newRenderer(out, verbose),
		turnDone: make(chan struct{}, 1),
		id:       uuid.NewString(),
	}

	eventBus := bus.New()
	approval.Default().Configure(
		approval.WithTimeout(cfg.Agent.ApprovalTimeout),
		approval.WithEmitter(eventBus.Publish),
		approval.WithWindowResolver(manager),
	)

	toolList := append([]tools.Tool{}, toolset.Tools()...)
	toolList = append(toolList,
		memorystore.NewLookupTool(store, cfg.Memory.LookupLimit).Named(cfg.Memory.LookupTool),
		memorystore.NewSaveTool(store, func() string { return s.id }),
	)

	s.agent = agent.New(provider,
		agent.WithTools(toolList...),
		agent.WithEventEmitter(eventBus.Publish),
		agent.WithApprover(approval.Default()),
		agent.WithProber(manager),
		agent.WithPageContextProvider(manager),
		agent.WithPlatform(cfg.Agent.Platform),
		agent.WithMemoryLookupTool(cfg.Memory.LookupTool),
		agent.WithMaxIterations(cfg.Agent.MaxIterations),
		agent.WithMaxProviderAttempts(cfg.Agent.MaxProviderAttempts),
		agent.WithMaxContextTokens(cfg.Agent.MaxContextTokens),
		agent.WithStreamingPolicy(policy),
		agent.WithTokenizer(tok),
	)

	in := bufio.NewReader(stdin)
	p := newPrompter(in, out, cfg.AutoApproval, approval.Default())
	p.assumeYes = f.yes

	events, unsubscribe := eventBus.SubscribeChan(1024)
	defer unsubscribe()
	go s.consume(events, p)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	interrupted := s.handleSignals(ctx, cancel, out)

	if f.startURL != "" {
		if nav, ok := toolset.Lookup("browser_navigate"); ok {
			result, err := nav.Invoke(ctx, f.startURL)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", f.startURL, err)
			}
			fmt.Fprintln(out, tipsStyle.Render(preview(result, 2)))
		}
	}

	if prompt != "" {
		return s.execute(ctx, prompt)
	}
	return s.interactive(ctx, in, out, interrupted)
}

// consume renders events and answers approval requests in arrival order.
func (s *session) consume(events <-chan *types.AgentEvent, p *prompter) {
	for event := range events {
		s.renderer.handle(event)
		p.handle(event)
		if event.IsTerminal() {
			select {
			case s.turnDone <- struct{}{}:
			default:
			}
		}
	}
}

// handleSignals cancels the running task on the first interrupt and quits on
// the second. The returned flag is cleared after each task.
func (s *session) handleSignals(ctx context.Context, cancel context.CancelFunc, out io.Writer) *atomic.Bool {
	interrupted := &atomic.Bool{}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				if sig == syscall.SIGTERM || interrupted.Swap(true) {
					fmt.Fprintln(out, "\nShutting down...")
					cancel()
					return
				}
				fmt.Fprintln(out, tipsStyle.Render("\nCancelling... press Ctrl+C again to quit."))
				s.agent.Cancel()
			}
		}
	}()
	return interrupted
}

// execute runs one task and prints its result.
func (s *session) execute(ctx context.Context, prompt string) error {
	select {
	case <-s.turnDone:
	default:
	}

	exec := agent.ExecutionContext{
		SessionID: s.id,
		ClientID:  s.cfg.Agent.ClientID,
	}
	if windowID, err := s.manager.ActiveWindowID(ctx); err == nil {
		exec.WindowID = windowID
	}
	if url, title, err := s.manager.CurrentPage(ctx); err == nil && url != "about:blank" {
		exec.PageURL, exec.PageTitle = url, title
	}

	result, err := s.agent.ExecutePrompt(ctx, prompt, exec)

	select {
	case <-s.turnDone:
	case <-time.After(turnSettle):
	}

	if errors.Is(err, agent.ErrCancelled) {
		s.renderer.printResult(result)
		return nil
	}
	if err != nil {
		return err
	}
	s.renderer.printResult(result)
	return nil
}

// interactive reads one task per line until exit, EOF or a second interrupt.
func (s *session) interactive(ctx context.Context, in *bufio.Reader, out io.Writer, interrupted *atomic.Bool) error {
	fmt.Fprintln(out, headerStyle.Render("tabpilot"))
	fmt.Fprintln(out, tipsStyle.Render(`Describe a task and press Enter. Type "exit" or "quit" to leave.`))

	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		line, err := readLine(ctx, in)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		task := strings.TrimSpace(line)
		switch task {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := s.execute(ctx, task); err != nil {
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
		}
		if ctx.Err() != nil {
			return nil
		}
		interrupted.Store(false)
	}
}

// readLine reads a line from in, returning early when ctx is done.
func readLine(ctx context.Context, in *bufio.Reader) (string, error) {
	type lineResult struct {
		line string
		err  error
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := in.ReadString('\n')
		ch <- lineResult{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line != "" {
			return r.line, nil
		}
		return r.line, r.err
	}
}

// browserOptions maps the browser config section onto tab manager options.
func browserOptions(cfg *config.Config) browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.IsHeadless()
	if cfg.Browser.ViewportWidth > 0 && cfg.Browser.ViewportHeight > 0 {
		opts.Viewport = browser.Viewport{Width: cfg.Browser.ViewportWidth, Height: cfg.Browser.ViewportHeight}
	}
	if cfg.Browser.TimeoutMS > 0 {
		opts.Timeout = cfg.Browser.TimeoutMS
	}
	if cfg.Browser.ProbeTimeout > 0 {
		opts.ProbeTimeout = cfg.Browser.ProbeTimeout
	}
	opts.ScreenshotDir = cfg.Browser.ScreenshotDir
	if cfg.Browser.MaxContentLength > 0 {
		opts.MaxContentLength = cfg.Browser.MaxContentLength
	}
	return opts
}
