// cmd/journey/main.go
//
// This is the entry point for the selection journey simulator.
// Running `journey` from any directory trains against the scenario in that
// directory's .journey folder, creating it on first run.
//
// Flow:
// 1. Load .journey/config.yaml (or --config) and build the logger
// 2. Load the scenario and open a session
// 3. Launch the TUI, or run one of the headless subcommands

package main

import (
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/selection-journey/internal/config"
	"github.com/kingrea/selection-journey/internal/journey"
	"github.com/kingrea/selection-journey/internal/logbook"
	"github.com/kingrea/selection-journey/internal/logging"
	"github.com/kingrea/selection-journey/internal/scenario"
	"github.com/kingrea/selection-journey/internal/session"
	"github.com/kingrea/selection-journey/internal/tui"
)

var (
	projectDir string
	configPath string
	verbose    bool

	cfg     *config.Config
	logger  *zap.Logger
	closeLg func() error
)

var rootCmd = &cobra.Command{
	Use:   "journey",
	Short: "Practise an entrepreneur selection journey in the terminal",
	Long: `journey walks a trainee through the four selection stages:
First Opinion Review, Second Opinion Reviews, the Local Selection Panel
and the International Selection Panel walkthrough. Replies from mentors and
founders arrive after a simulated delay.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := projectDir
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			dir = cwd
		}
		if err := config.InitJourneyDir(dir); err != nil {
			return err
		}
		var err error
		cfg, err = config.NewConfig(dir)
		if err != nil {
			return err
		}
		if configPath != "" {
			if err := cfg.LoadFile(configPath); err != nil {
				return err
			}
		}
		opts := logging.Options{}
		if verbose {
			opts.Console = os.Stderr
		}
		logger, closeLg, err = logging.FromConfig(cfg, opts)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeLg != nil {
			return closeLg()
		}
		return nil
	},
	RunE: runTUI,
}

var walkthroughCmd = &cobra.Command{
	Use:   "walkthrough",
	Short: "Play the scripted trainee through the whole journey without delays",
	RunE:  runWalkthrough,
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the screen routing table in priority order",
	RunE:  runRoutes,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "d", "", "Project directory holding .journey (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file to use instead of .journey/config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror structured logs to stderr")

	rootCmd.AddCommand(walkthroughCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openSession loads the scenario and journal and assembles a session.
func openSession() (*session.Session, error) {
	sc, err := scenario.Load(cfg.ScenarioPath())
	if err != nil {
		return nil, err
	}
	book, err := logbook.New(cfg.JournalPath())
	if err != nil {
		return nil, err
	}
	return session.Open(cfg, sc, logger, book)
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	app, err := tui.NewApp(s, tui.WithLogger(logger.Named("tui")), tui.WithReportsDir(cfg.ReportsDir()))
	if err != nil {
		return err
	}
	defer app.Close()

	// tea.NewProgram creates a new bubbletea application
	p := tea.NewProgram(
		app,
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

func runWalkthrough(cmd *cobra.Command, args []string) error {
	cfg.Instant()
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	last := journey.Screen("")
	err = s.Walk(ctx, func(action string, d journey.Decision) {
		if d.Screen == last {
			return
		}
		last = d.Screen
		fmt.Fprintf(out, "%-28s → %s\n", action, d.Screen)
	})
	if err != nil {
		return err
	}
	sig := s.Snapshot()
	fmt.Fprintf(out, "\nFinished at %s with outcome %s.\n", sig.Stage.Label(), sig.Deliberation.Outcome)
	path, err := s.ExportReport(cfg.ReportsDir())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Report: %s\n", path)
	return nil
}

func runRoutes(cmd *cobra.Command, args []string) error {
	router := journey.NewRouter(journey.WithRequiredReviews(cfg.Thresholds().RequiredReviews))
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tRULE\tSCREEN\tWHEN")
	for i, rule := range router.Rules() {
		screen := string(rule.Screen)
		if screen == "" {
			screen = "(computed)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, rule.Name, screen, rule.Reason)
	}
	return w.Flush()
}
