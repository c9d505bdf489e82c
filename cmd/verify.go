package cmd

import (
	"fmt"

	"github.com/encodeous/lsr/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate the network config and print it with defaults filled in",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadNetworkConfig(networkConfigPath)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Println("Config is valid")
		fmt.Println(string(out))
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
