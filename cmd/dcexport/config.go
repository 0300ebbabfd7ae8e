package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dcexport/pkg/config"
	"dcexport/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage dcexport configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'dcexport.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values

Sensitive values like the token will be masked for security.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	// Determine config file path
	configPath := configFile
	if configPath == "" {
		configPath = "dcexport.yaml"
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	// Create example configuration
	exampleConfig := `# Discord Channel Exporter Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with DCEXPORT_
# For example: DCEXPORT_TOKEN, DCEXPORT_OUTPUT_DIR

# Discord API access
discord:
  # Authorization token (required unless stored via 'dcexport auth login')
  # Get this from your browser's developer tools
  token: "YOUR_DISCORD_TOKEN"

  # User agent string sent with every request
  # Leave empty to use the default browser user agent
  user_agent: ""

  # API base URL, only change this for testing
  api_base_url: "https://discord.com/api/v9"

# Export behavior
export:
  # Messages requested per API call
  # Range: 1-100
  page_size: 100

  # Messages fetched between flushes to disk
  save_interval: 50

  # Timeout for a single API request
  request_timeout: 30s

# Output settings
output:
  # Directory for archive files
  directory: "./exports"

  # File name pattern, {channel_id} is replaced with the channel ID
  file_name_pattern: "{channel_id}.json"

# Request pacing
rate_limit:
  # Gap between successive requests at the start of a run
  initial_delay: 1s

  # Floor the gap decays toward while requests succeed
  min_delay: 500ms

  # Ceiling the gap grows toward after rate limit responses
  max_delay: 10s

  # Wait applied when a rate limit response carries no Retry-After
  default_retry_after: 5s

# Transient failure handling
retry:
  # Retries per page after the first attempt
  # Range: 0-10
  max_retries: 3

  # First backoff delay
  base_delay: 1s

  # Cap on the computed backoff delay
  max_backoff: 30s

  # Backoff growth factor
  multiplier: 2.0

  # Randomization applied to backoff delays
  # Range: 0.0-1.0
  jitter_factor: 0.1

# Desktop notifications
notifications:
  enabled: false
  on_complete: true
  on_error: true
  on_rate_limit: false

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional)
  # Leave empty to log to stderr only
  file: ""
`

	// Write configuration file with owner-only permissions since the user
	// may add a token to it
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Add your token to the file, or run 'dcexport auth login' to store it securely")
	fmt.Println("2. Run 'dcexport config validate' to check the configuration")
	fmt.Println("3. Start exporting with 'dcexport export <channel_id>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Create a sanitized version for display
	displayCfg := *cfg

	// Mask the token
	if displayCfg.Discord.Token != "" {
		if len(displayCfg.Discord.Token) > 8 {
			displayCfg.Discord.Token = displayCfg.Discord.Token[:4] + "..." + displayCfg.Discord.Token[len(displayCfg.Discord.Token)-4:]
		} else {
			displayCfg.Discord.Token = "***"
		}
	}

	// Convert to YAML for display
	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	// Show configuration sources
	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (DCEXPORT_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	// Check if config file is specified
	if configFile == "" {
		// Try to find config file in common locations
		possiblePaths := []string{
			"dcexport.yaml",
			"dcexport.yml",
			".dcexport.yaml",
			".dcexport.yml",
			filepath.Join(os.Getenv("HOME"), ".dcexport.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "dcexport", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	// Try to load and validate configuration
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	// Perform additional validation checks
	warnings := []string{}
	errors := []string{}

	// Check credentials
	if cfg.Discord.Token == "" || cfg.Discord.Token == "YOUR_DISCORD_TOKEN" {
		warnings = append(warnings, "Discord token not configured (can also come from a stored account)")
	}

	// Check paths
	if cfg.Output.Directory != "" {
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create output directory: %v", err))
		}
	}

	// Check logging file path
	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	// Small pages multiply the number of requests for the same history
	if cfg.Export.PageSize < 25 {
		warnings = append(warnings, fmt.Sprintf("page_size %d is small, the export will make many more requests", cfg.Export.PageSize))
	}

	// Display results
	if len(errors) > 0 {
		ui.PrintError("Configuration has errors:", "")
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	// Show summary
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	fmt.Printf("  Page size: %d messages/request\n", cfg.Export.PageSize)
	fmt.Printf("  Save interval: every %d messages\n", cfg.Export.SaveInterval)
	fmt.Printf("  Request timeout: %s\n", cfg.Export.RequestTimeout)
	fmt.Printf("  Max retries: %d\n", cfg.Retry.MaxRetries)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
