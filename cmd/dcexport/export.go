package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dcexport/pkg/auth"
	"dcexport/pkg/config"
	"dcexport/pkg/discord"
	"dcexport/pkg/exporter"
	"dcexport/pkg/logger"
	"dcexport/pkg/ui"
)

var (
	// Export command flags
	outputFile     string
	outputDir      string
	pageSize       int
	saveInterval   int
	requestTimeout time.Duration
	maxRetries     int
	resumeExport   bool
	forceRestart   bool
	accountName    string
	tokenFlag      string
	notify         bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <channel-id>",
	Short: "Export the message history of a channel",
	Long: `Export the full message history of a Discord channel to a JSON file.

The channel ID can be a bare snowflake, a <#id> mention, or a channel URL.
A token must be available from one of these sources:
  - The --token flag
  - Environment variables (DCEXPORT_TOKEN, .env files are read)
  - A configuration file
  - A stored account (use 'dcexport auth login' to store one)

Messages are written newest to oldest as a single JSON array. The archive
is flushed atomically at the configured save interval and again on exit,
so an interrupted run can always be resumed with --resume.`,
	Example: `  # Export a channel with default settings
  dcexport export 123456789012345678

  # The export subcommand is the default, so this works too
  dcexport 123456789012345678

  # Custom output location and page size
  dcexport export 123456789012345678 --output-dir ./archives --page-size 50

  # Use a specific stored account
  dcexport export 123456789012345678 --account alice

  # Resume an interrupted export
  dcexport export 123456789012345678 --resume

  # Start over, ignoring the existing checkpoint
  dcexport export 123456789012345678 --force-restart`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runExport(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file name (default: <channel-id>.json)")
	exportCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for archive files (default: ./exports)")
	exportCmd.Flags().IntVar(&pageSize, "page-size", 100, "messages requested per API call (1-100)")
	exportCmd.Flags().IntVar(&saveInterval, "save-interval", 50, "messages fetched between flushes to disk")
	exportCmd.Flags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "timeout for a single API request")
	exportCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "retries per page after a transient failure")
	exportCmd.Flags().BoolVar(&resumeExport, "resume", false, "resume from the last checkpoint")
	exportCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "start fresh, ignoring an existing checkpoint")
	exportCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	exportCmd.Flags().StringVar(&tokenFlag, "token", "", "Discord token (overrides all other sources)")
	exportCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the export finishes")
}

// Make export the default command so a bare channel ID works:
//
//	dcexport 123456789012345678
func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			runExport(cmd, args)
			return nil
		}
		return cmd.Help()
	}

	rootCmd.Args = cobra.ArbitraryArgs

	// Mirror the common export flags on the root command so the bare form
	// accepts them too
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file name (default: <channel-id>.json)")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for archive files (default: ./exports)")
	rootCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	rootCmd.Flags().StringVar(&tokenFlag, "token", "", "Discord token (overrides all other sources)")
	rootCmd.Flags().BoolVar(&resumeExport, "resume", false, "resume from the last checkpoint")
	rootCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "start fresh, ignoring an existing checkpoint")
	rootCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the export finishes")
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}

func runExport(cmd *cobra.Command, args []string) {
	channelID := discord.SanitizeChannelID(args[0])

	if !discord.IsValidChannelID(channelID) {
		ui.PrintError("Invalid channel ID", args[0])
		fmt.Println("\nA channel ID is a 15-21 digit number. You can also paste:")
		fmt.Println("  - A channel URL: https://discord.com/channels/<guild>/<channel>")
		fmt.Println("  - A channel mention: <#123456789012345678>")
		os.Exit(1)
	}

	ui.PrintInfo("Target Channel", channelID)

	// Build flags map from command line, only including explicitly set values
	flags := make(map[string]interface{})
	if tokenFlag != "" {
		flags["token"] = tokenFlag
	}
	if outputDir != "" {
		flags["output-dir"] = outputDir
	}
	if cmd.Flags().Changed("page-size") {
		flags["page-size"] = pageSize
	}
	if cmd.Flags().Changed("save-interval") {
		flags["save-interval"] = saveInterval
	}
	if cmd.Flags().Changed("timeout") {
		flags["timeout"] = requestTimeout
	}
	if cmd.Flags().Changed("max-retries") {
		flags["max-retries"] = maxRetries
	}
	if notify {
		flags["notify"] = true
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// An explicit file name wins over the configured pattern
	if outputFile != "" {
		cfg.Output.FileNamePattern = outputFile
	}

	logger.Initialize(&cfg.Logging)
	logger.WithField("version", version).Debug("dcexport starting")

	resolveToken(cfg)

	// Stop cleanly on ctrl-c or SIGTERM: the exporter flushes what it has
	// and exits with the archive matching memory
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exp, err := exporter.New(cfg)
	if err != nil {
		ui.PrintError("Failed to initialize exporter", err.Error())
		os.Exit(1)
	}

	if err := exp.ExportChannelWithResume(ctx, channelID, resumeExport, forceRestart); err != nil {
		logger.WithError(err).WithField("channel_id", channelID).Error("Export failed")
		os.Exit(1)
	}

	// A clean interrupt still exits 0: the archive on disk is consistent
	if exp.WasInterrupted() {
		logger.WithFields(map[string]interface{}{
			"channel_id": channelID,
			"messages":   exp.GetTotalExported(),
		}).Info("Export interrupted, progress saved")
		return
	}

	logger.WithFields(map[string]interface{}{
		"channel_id": channelID,
		"messages":   exp.GetTotalExported(),
		"file":       exp.OutputPath(),
	}).Info("Export completed")
}

// resolveToken fills cfg.Discord.Token from the first available source.
// The --token flag and the environment were already merged by config.Load,
// so stored accounts only apply when those are absent, except that an
// explicit --account always refers to the named account.
func resolveToken(cfg *config.Config) {
	credManager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var account *auth.Account

	switch {
	case tokenFlag != "":
		// Explicit token, nothing to resolve
	case accountName != "":
		account, err = credManager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			fmt.Println("\nUse 'dcexport auth list' to see stored accounts.")
			os.Exit(1)
		}
	case cfg.Discord.Token != "":
		logger.Debug("Using token from environment or configuration")
	default:
		account, err = credManager.RetrieveDefault()
		if err != nil {
			ui.PrintError("No Discord token found", "")
			fmt.Println("\nTo store a token securely, run:")
			fmt.Println("  dcexport auth login")
			fmt.Println("\nOr set an environment variable:")
			fmt.Println("  export DCEXPORT_TOKEN=your_token")
			auth.ShowQuickExtractGuide()
			os.Exit(1)
		}
	}

	if account != nil {
		cfg.Discord.Token = account.Token
		if account.UserAgent != "" {
			cfg.Discord.UserAgent = account.UserAgent
		}
		logger.WithField("account", account.Name).Info("Using stored credentials")
		ui.PrintInfo("Account", account.Name)
	}

	if cfg.Discord.Token == "" {
		ui.PrintError("Missing Discord token", "Run 'dcexport auth login' to store one")
		os.Exit(1)
	}
}
