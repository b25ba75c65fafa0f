package cmd

import (
	"fmt"

	"github.com/nexagreement/agreementd/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and commit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agreementd %s (%s)\n", version.GetVersion(), version.GetCommit())
	},
}
