package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/breadthcore/internal/calcconfig"
	"github.com/wonny/breadthcore/internal/contracts"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage calculation configs",
	Long: `Manages versioned calculation configs.

Subcommands:
  list        - stored configs, newest first
  show        - one config as YAML
  export      - write a config to a YAML file
  import      - store a config from a YAML file
  set-default - mark a config as its algorithm's default
  defaults    - built-in defaults per algorithm
  validate    - check a YAML file without storing it

Example:
  go run ./cmd/breadth config list
  go run ./cmd/breadth config export six_factor_v1700000000000 --out config.yaml
  go run ./cmd/breadth config import config.yaml`,
}

var (
	configListActive bool
	configExportOut  string

	configListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored configs",
		RunE:  listConfigs,
	}

	configShowCmd = &cobra.Command{
		Use:   "show [version]",
		Short: "Show one config as YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  showConfig,
	}

	configExportCmd = &cobra.Command{
		Use:   "export [version]",
		Short: "Export a config to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  exportConfig,
	}

	configImportCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Import a config from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  importConfig,
	}

	configSetDefaultCmd = &cobra.Command{
		Use:   "set-default [version]",
		Short: "Mark a config as its algorithm's default",
		Args:  cobra.ExactArgs(1),
		RunE:  setDefaultConfig,
	}

	configDefaultsCmd = &cobra.Command{
		Use:   "defaults",
		Short: "Show built-in defaults per algorithm",
		RunE:  showDefaults,
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a YAML config file without storing it",
		Args:  cobra.ExactArgs(1),
		RunE:  validateConfig,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configExportCmd)
	configCmd.AddCommand(configImportCmd)
	configCmd.AddCommand(configSetDefaultCmd)
	configCmd.AddCommand(configDefaultsCmd)
	configCmd.AddCommand(configValidateCmd)

	configListCmd.Flags().BoolVar(&configListActive, "active", false, "only active configs")
	configExportCmd.Flags().StringVar(&configExportOut, "out", "", "output file (default stdout)")
}

func listConfigs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	configs, err := a.store.List(ctx, configListActive)
	if err != nil {
		return fmt.Errorf("list configs: %w", err)
	}

	if len(configs) == 0 {
		fmt.Println("No configs stored")
		return nil
	}

	fmt.Printf("%-36s %-16s %-8s %s\n", "VERSION", "ALGORITHM", "DEFAULT", "NAME")
	for _, cfg := range configs {
		def := ""
		if cfg.IsDefault {
			def = "yes"
		}
		fmt.Printf("%-36s %-16s %-8s %s\n", cfg.Version, cfg.Algorithm, def, cfg.Name)
	}

	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get config: %w", err)
	}

	data, err := calcconfig.Export(cfg)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}

	hash, err := calcconfig.Hash(cfg)
	if err != nil {
		return fmt.Errorf("hash config: %w", err)
	}

	fmt.Printf("# %s (hash %s)\n", cfg.Version, hash[:12])
	fmt.Print(string(data))
	return nil
}

func exportConfig(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get config: %w", err)
	}

	data, err := calcconfig.Export(cfg)
	if err != nil {
		return fmt.Errorf("export config: %w", err)
	}

	if configExportOut == "" {
		fmt.Print(string(data))
		return nil
	}

	if err := os.WriteFile(configExportOut, data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Printf("✅ Exported %s to %s\n", args[0], configExportOut)
	return nil
}

func importConfig(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	cfg, err := calcconfig.Import(data)
	if err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	version, err := a.store.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	fmt.Printf("✅ Imported as version %s\n", version)
	return nil
}

func setDefaultConfig(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SetDefault(ctx, args[0]); err != nil {
		return fmt.Errorf("set default: %w", err)
	}

	fmt.Printf("✅ %s is now its algorithm's default\n", args[0])
	return nil
}

func showDefaults(cmd *cobra.Command, args []string) error {
	for _, t := range contracts.AlgorithmTypes {
		cfg := calcconfig.DefaultConfig(t)
		data, err := calcconfig.Export(cfg)
		if err != nil {
			return fmt.Errorf("render %s default: %w", t, err)
		}
		fmt.Printf("# === %s ===\n%s\n", t, string(data))
	}
	return nil
}

func validateConfig(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	cfg, err := calcconfig.Import(data)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Printf("✅ Valid %s config\n", cfg.Algorithm)
	for _, warning := range calcconfig.Warn(cfg) {
		fmt.Printf("  ⚠ %s: %s\n", warning.Code, warning.Message)
	}
	return nil
}
