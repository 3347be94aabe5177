// Command yaecs resolves layered experiment configs from the command
// line: merge a default source with experiment sources and overrides,
// inspect or save the result, and expand declared variations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "yaecs",
	Short: "Hierarchical experiment configuration engine",
	Long: "yaecs merges layered config sources into one parameter tree with\n" +
		"sub-config scopes, command-line overrides and variation expansion.\n\n" +
		"Override tokens and --config source selection go after \"--\":\n" +
		"  yaecs resolve -d default.yaml -- --config exp.yaml --model.lr=0.01",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print yaecs version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "yaecs version %s\n", version)
	},
}

func main() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(varyCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
