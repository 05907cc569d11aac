package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "state-atlas",
	Short: "Prepare the per-state geographic reference dataset",
	Long: `Scaffolds one directory per U.S. state, materializes county lists into CSV tables,
and splits the nationwide TIGER/Line county shapefile into per-state GeoJSON files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if root, _ := cmd.Flags().GetString("root"); cmd.Flags().Changed("root") {
			c.Atlas.Root = root
		}
		if err := c.Validate(cmd.Name()); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("root", ".", "dataset root containing states/ and scripts/ (default: from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
