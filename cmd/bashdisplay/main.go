// Command bashdisplay runs bash cells and shows the images they display,
// either from the terminal or as an MCP server.
package main

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bashdisplay",
	Short: "Run bash cells and display the images they name",
	Long: `bashdisplay runs a bash script in a fresh interpreter. Inside the script,
"display <file>" shows an image next to the output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("dir", "", "working directory for cells (default: current directory)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")
}

// exitCode ends the process with a status but no message.
type exitCode int

func (c exitCode) Error() string { return "exit status" }

func main() {
	log.SetFlags(0)
	log.SetPrefix("bashdisplay: ")

	err := rootCmd.Execute()
	var code exitCode
	if errors.As(err, &code) {
		os.Exit(int(code))
	}
	if err != nil {
		log.Fatal(err)
	}
}
