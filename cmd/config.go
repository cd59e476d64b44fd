package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mihaisavezi/mutual-dissent/internal/config"
	"github.com/mihaisavezi/mutual-dissent/internal/vendor"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the debate engine's configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration interactively",
	Long:  `Initialize configuration by prompting for vendor API keys.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the current configuration for errors.`,
	RunE:  runConfigValidate,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate example YAML configuration",
	Long:  `Generate an example YAML configuration file with a placeholder key for every vendor that takes an API key.`,
	RunE:  runConfigGenerate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configGenerateCmd)

	configGenerateCmd.Flags().BoolP("force", "f", false, "overwrite existing configuration file")
}

// configurableVendors lists every vendor runConfigInit prompts for, in
// prompt order.
var configurableVendors = []vendor.Vendor{
	vendor.Anthropic, vendor.OpenAI, vendor.Google, vendor.XAI, vendor.Groq, vendor.Aggregator,
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	color.Blue("Mutual Dissent Configuration Setup")
	color.Yellow("Leave a prompt blank to skip that vendor.")

	reader := bufio.NewReader(os.Stdin)
	vendors := make(map[vendor.Vendor]struct{ APIKey, Endpoint string })

	for _, v := range configurableVendors {
		fmt.Printf("\n%s API key (blank to skip): ", v)

		key, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("error reading %s API key: %w", v, err)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		vendors[v] = struct{ APIKey, Endpoint string }{APIKey: key}
	}

	fmt.Print("\nAPI key clients must send to this server (optional): ")

	apiKey, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("error reading server API key: %w", err)
	}

	cfg := defaultConfig()
	cfg.APIKey = strings.TrimSpace(apiKey)

	for v, creds := range vendors {
		cfg.Vendors[v] = vendorConfigFrom(creds)
	}

	if err := cfgMgr.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	color.Green("Configuration saved successfully to: %s", cfgMgr.GetPath())
	color.Cyan("Start the HTTP API with: dissent serve")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration found. Run 'dissent config init' or 'dissent config generate' to create one.")
		return nil
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-20s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-20s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-20s: %s\n", "Server API Key", maskString(cfg.APIKey))
	fmt.Printf("  %-20s: %s\n", "Transcript dir", cfg.TranscriptDir)
	fmt.Printf("  %-20s: %s\n", "Config Path", cfgMgr.GetPath())

	configType := "JSON"
	if cfgMgr.HasYAML() {
		configType = "YAML"
	}

	fmt.Printf("  %-20s: %s\n", "Format", configType)

	fmt.Println("\nVendors:")

	for _, v := range configurableVendors {
		vc, ok := cfg.Vendors[v]
		if !ok || vc.APIKey == "" {
			fmt.Printf("  - %-10s: (not configured)\n", v)
			continue
		}

		fmt.Printf("  - %-10s: %s\n", v, maskString(vc.APIKey))
	}

	fmt.Println("\nRouting:")
	fmt.Printf("  %-20s: %s\n", "Mode", cfg.Routing.Mode)

	for alias, mode := range cfg.Routing.Overrides {
		fmt.Printf("  %-20s: %s -> %s\n", "Override", alias, mode)
	}

	fmt.Println("\nDebate defaults:")
	fmt.Printf("  %-20s: %v\n", "Panel", cfg.DefaultPanel)
	fmt.Printf("  %-20s: %s\n", "Synthesizer", cfg.DefaultSynthesizer)
	fmt.Printf("  %-20s: %d\n", "Reflection rounds", cfg.DefaultRounds)

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		return errors.New("no configuration found")
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var validationErrors []string

	if len(cfg.Vendors) == 0 {
		validationErrors = append(validationErrors, "no vendors configured")
	}

	for _, alias := range cfg.DefaultPanel {
		// The vendor a default-panel alias resolves to is checked at
		// engine build time, not here: validate only requires that the
		// alias itself is non-empty.
		if alias == "" {
			validationErrors = append(validationErrors, "default_panel contains an empty alias")
		}
	}

	if cfg.DefaultSynthesizer == "" {
		validationErrors = append(validationErrors, "default_synthesizer is required")
	}

	if len(validationErrors) > 0 {
		color.Red("Configuration validation failed:")

		for _, e := range validationErrors {
			fmt.Printf("  - %s\n", e)
		}

		return errors.New("configuration validation failed")
	}

	color.Green("Configuration is valid!")

	return nil
}

func runConfigGenerate(cmd *cobra.Command, _ []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if cfgMgr.Exists() && !force {
		configType := "JSON"
		if cfgMgr.HasYAML() {
			configType = "YAML"
		}

		color.Yellow("Configuration file already exists (%s format): %s", configType, cfgMgr.GetPath())
		color.Cyan("Use --force to overwrite, or 'dissent config show' to view the current config")

		return nil
	}

	if err := cfgMgr.CreateExampleYAML(); err != nil {
		return fmt.Errorf("failed to create example configuration: %w", err)
	}

	color.Green("Example YAML configuration created: %s", cfgMgr.GetYAMLPath())
	color.Cyan("\nNext steps:")
	fmt.Println("1. Edit the configuration file to add your vendor API keys")
	fmt.Println("2. Run 'dissent config validate' to check your configuration")
	fmt.Println("3. Run a debate with 'dissent debate \"your question\"' or start the API with 'dissent serve'")

	return nil
}

// defaultConfig builds a fresh Config with an empty vendor map and the
// package-level defaults for host, port, panel, synthesizer, and rounds.
func defaultConfig() *config.Config {
	return &config.Config{
		Host:               config.DefaultHost,
		Port:               config.DefaultPort,
		Vendors:            make(map[vendor.Vendor]config.VendorConfig),
		Routing:            config.RoutingConfig{Mode: vendor.ModeAuto},
		DefaultPanel:       config.DefaultPanel,
		DefaultSynthesizer: config.DefaultSynthesizer,
		DefaultRounds:      config.DefaultRounds,
	}
}

func vendorConfigFrom(creds struct{ APIKey, Endpoint string }) config.VendorConfig {
	return config.VendorConfig{APIKey: creds.APIKey, Endpoint: creds.Endpoint}
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}

	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}

	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
