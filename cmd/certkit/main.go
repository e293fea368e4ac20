// Command certkit analyzes certificate templates, issues signed
// certificate batches, and serves the verification API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:          "certkit",
		Short:        "Template analysis and signed certificate rendering",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")

	root.AddCommand(
		newAnalyzeCmd(),
		newGenerateCmd(),
		newServeCmd(),
		newVerifyCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
