package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var networkConfigPath = "network.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lsr",
	Short: "Link-state routing simulator",
	Long: `lsr runs a network of link-state routers in a single process.
Every node floods its adjacency to the rest of the network and computes shortest-path forwarding tables from what it learns.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Create Networks",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "sim",
		Title: "Simulation Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cfg",
		Title: "Configuration & Debugging",
	})
	rootCmd.PersistentFlags().StringVarP(&networkConfigPath, "config", "c", networkConfigPath, "network config")
}
