package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wildfire-viz",
		Short: "Wildfire map and globe scene service",
		Long: `wildfire-viz keeps a flat web-mercator map and a 3D globe showing the same
active fires, analyzed hotspots and boundary labels, and serves both scenes
to browser clients.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "path to a YAML config file (FIREVIZ_* variables override it)")
	root.PersistentFlags().StringSlice("env-file", []string{".env"}, ".env files loaded before the config")
	root.PersistentFlags().Bool("debug", false, "enable development logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newDistributionCmd())
	root.AddCommand(newLabelsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
