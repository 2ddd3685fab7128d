package cmd

import (
	"fmt"
	"runtime"

	"github.com/dh1tw/ribbit/waveform"
	"github.com/spf13/cobra"
)

var version string
var commitHash string
var buildDate string

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ribbit",
	Long:  `All software has versions. This is ribbit's.`,
	Run: func(cmd *cobra.Command, args []string) {
		printRibbitVersion()
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}

func printRibbitVersion() {
	fmt.Printf("ribbit Version: %s, %s/%s, BuildDate: %s, Commit: %s, Mode: %d\n",
		version, runtime.GOOS, runtime.GOARCH, buildDate, commitHash, waveform.ModeID)
}
