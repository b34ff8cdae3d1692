package main

import (
	"github.com/spf13/cobra"
	"github.com/ternarybob/advisor/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("Advisor version %s\n", common.GetVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
