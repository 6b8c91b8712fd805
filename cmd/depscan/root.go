package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for depscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "depscan",
		Short: "Supply-chain checks for Python dependencies",
		Long: `depscan checks the Python dependencies of a project for signs of
supply-chain compromise.

Every dependency is run through four checks:
  typosquatting          the name does not exist on PyPI
  supply chain attack    the installed package has no RECORD file
  code injection         installed sources call exec( or eval(
  credential harvesting  the metadata mentions username and password

Each check scores 0 or 1; a package's vulnerability percentage is the
share of flagged checks, and the project total is the mean over packages.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewLocalCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
