package main

import (
	"fmt"

	"github.com/deixis/bashdisplay"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(bashdisplay.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
