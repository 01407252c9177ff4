package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Nomadcxx/swipesort/internal/client"
	"github.com/Nomadcxx/swipesort/internal/config"
	"github.com/Nomadcxx/swipesort/internal/logging"
	"github.com/Nomadcxx/swipesort/internal/mover"
	"github.com/Nomadcxx/swipesort/internal/pane"
	"github.com/Nomadcxx/swipesort/internal/pathtree"
	"github.com/Nomadcxx/swipesort/internal/server"
	"github.com/Nomadcxx/swipesort/internal/session"
	"github.com/Nomadcxx/swipesort/internal/triage"
	"github.com/Nomadcxx/swipesort/internal/ui"
)

var (
	cfgFile  string
	dir      string
	backend  string
	root     string
	listen   string
	dryRun   bool
	logLevel string

	// Version information (set via -ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "swipesort",
	Short: "Sort media files one at a time into folders",
	Long:  getLongDescription(),
}

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Step through a folder's media and accept or reject each file",
	Run:   runTriage,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a media root to the triage client",
	Run:   runServe,
}

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "Print the folder tree the backend exposes",
	Run:   runFolders,
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the media files of a folder",
	Run:   runFiles,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration file location and contents",
	Run:   runConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("swipesort %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/swipesort/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	for _, cmd := range []*cobra.Command{triageCmd, foldersCmd, filesCmd} {
		cmd.Flags().StringVar(&backend, "backend", "", "backend URL (overrides [backend] url)")
	}
	triageCmd.Flags().StringVarP(&dir, "dir", "d", "", "folder to start triaging")
	foldersCmd.Flags().StringVarP(&dir, "dir", "d", "", "folder to expand and mark")
	filesCmd.Flags().StringVarP(&dir, "dir", "d", "", "folder to list")
	filesCmd.MarkFlagRequired("dir")

	serveCmd.Flags().StringVar(&root, "root", "", "media root (overrides [server] root)")
	serveCmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides [server] listen)")
	serveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log moves without touching the filesystem")

	rootCmd.AddCommand(triageCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTriage(cmd *cobra.Command, args []string) {
	cfg, err := loadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewFile(logging.DefaultStatePath(), cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	opts, err := triageOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	c, err := newClient(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sess, err := session.Load(context.Background(), c, dir, session.Options{Triage: opts, Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error contacting backend at %s: %v\n", cfg.Backend.URL, err)
		os.Exit(1)
	}

	p := tea.NewProgram(ui.NewModel(sess, c, ui.Options{Logger: log}), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	if m, ok := final.(ui.Model); ok && m.Session().HasDirectory() {
		s := m.Session().Controller.Stats()
		fmt.Printf("%s: %d accepted, %d rejected, %d failed moves\n", m.Session().Dir, s.Accepted, s.Rejected, s.MoveFailed)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := applyServeFlags(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Set [server] root in the config file or pass --root")
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.Log.Level)

	m, err := mover.New(mover.Config{
		Root:           cfg.Server.Root,
		DryRun:         cfg.Server.DryRun,
		ProtectedPaths: cfg.Server.Protected,
		LogPath:        cfg.OperationLogPath(),
		Logger:         log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Stop serving on Ctrl+C or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Mover:  m,
		Listen: cfg.Server.Listen,
		Watch:  cfg.Server.Watch,
		Logger: log,
	})
	if cfg.Server.DryRun {
		log.Warn().Msg("dry run: moves are logged but not performed")
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		os.Exit(1)
	}
}

func runFolders(cmd *cobra.Command, args []string) {
	c, err := listingClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	folders, err := c.Folders(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching folders: %v\n", err)
		os.Exit(1)
	}

	tree := pathtree.Build(folders)
	if dir != "" {
		if _, ok := tree.Find(dir); !ok {
			fmt.Fprintf(os.Stderr, "Folder %s not found\n", dir)
			os.Exit(1)
		}
	}
	fmt.Print(renderFolders(tree, dir))
}

func runFiles(cmd *cobra.Command, args []string) {
	c, err := listingClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	files, err := c.Files(cmd.Context(), dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No files in %s\n", dir)
		return
	}

	fmt.Println(renderFilesTable(files))
}

func runConfig(cmd *cobra.Command, args []string) {
	configPath := cfgFile
	if configPath == "" {
		var err error
		configPath, err = config.ConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	_, statErr := os.Stat(configPath)
	created := os.IsNotExist(statErr)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration file: %s\n", configPath)
	if created {
		fmt.Println("(created with defaults)")
	}

	fmt.Printf("\nBackend:\n")
	fmt.Printf("  URL:        %s\n", cfg.Backend.URL)
	fmt.Printf("  Timeout:    %s\n", cfg.Backend.Timeout)
	fmt.Printf("  Retries:    %d\n", cfg.Backend.RetryMax)

	fmt.Printf("\nTriage:\n")
	fmt.Printf("  Transition:       %s\n", cfg.Triage.TransitionDelay)
	fmt.Printf("  On move failure:  %s\n", cfg.Triage.OnMoveFailure)

	fmt.Printf("\nServer:\n")
	fmt.Printf("  Listen:     %s\n", cfg.Server.Listen)
	fmt.Printf("  Root:       %s\n", valueOr(cfg.Server.Root, "(not set)"))
	fmt.Printf("  Dry run:    %t\n", cfg.Server.DryRun)
	fmt.Printf("  Watch:      %t\n", cfg.Server.Watch)
	fmt.Printf("  Op log:     %s\n", cfg.OperationLogPath())
	for _, p := range cfg.Server.Protected {
		fmt.Printf("  Protected:  %s\n", p)
	}

	fmt.Printf("\nLog level: %s\n", cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\n%s\n", ui.FormatStatusWarn(err.Error()))
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// loadClientConfig loads and validates the settings of client commands
func loadClientConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Backend.URL = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyServeFlags(cfg *config.Config) error {
	if root != "" {
		if err := cfg.SetServerRoot(root); err != nil {
			return err
		}
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if dryRun {
		cfg.Server.DryRun = true
	}
	return nil
}

func triageOptions(cfg *config.Config) (triage.Options, error) {
	delay, err := cfg.TransitionDelay()
	if err != nil {
		return triage.Options{}, err
	}
	policy, err := triage.ParseFailurePolicy(cfg.Triage.OnMoveFailure)
	if err != nil {
		return triage.Options{}, err
	}
	return triage.Options{TransitionDelay: delay, OnMoveFailure: policy}, nil
}

func newClient(cfg *config.Config, log *logging.Logger) (*client.Client, error) {
	timeout, err := cfg.BackendTimeout()
	if err != nil {
		return nil, err
	}
	return client.New(client.Options{
		BaseURL:  cfg.Backend.URL,
		Timeout:  timeout,
		RetryMax: cfg.Backend.RetryMax,
		Logger:   log,
	}), nil
}

// listingClient builds a client for the one-shot listing commands, logging
// to stderr
func listingClient() (*client.Client, error) {
	cfg, err := loadClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newClient(cfg, logging.New(os.Stderr, cfg.Log.Level))
}

// renderFolders prints the navigation pane as an indented tree. With dir
// set, the pane gets the same auto-expand as the triage screen and the
// active folder is marked.
func renderFolders(tree *pathtree.Tree, dir string) string {
	state := pane.NewState()
	if dir == "" {
		// Without an active folder show everything
		tree.Walk(func(n *pathtree.Node, depth int) bool {
			state.Expand(n.FullPath)
			return true
		})
	} else {
		pane.AutoExpand(tree, state, dir)
	}

	var sb strings.Builder
	for _, row := range pane.Render(tree, state) {
		glyph := row.Glyph
		if glyph == "" {
			glyph = " "
		}
		name := row.Name
		if name == "" {
			name = "(empty)"
		}
		sb.WriteString(strings.Repeat("  ", row.Depth) + glyph + " " + name)
		if row.Selected {
			sb.WriteString("  *")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func getLongDescription() string {
	return ui.FormatASCIIHeader() + "\n\n" +
		"swipesort walks you through the media files of a folder one at a time.\n" +
		"Accept moves a file into the folder picked in the target pane; reject skips it.\n" +
		"Run 'swipesort serve --root <dir>' to expose a media folder, then 'swipesort triage'."
}
