// Wireline - connection-observer engine for network CLI automation
//
// The wireline binary exercises the engine offline: it replays raw session
// captures through the same observer/runner machinery that drives live
// connections, so prompt grammars and parsers can be validated against
// recorded device output without touching a device.
//
//	wireline replay -p cisco.yaml -t capture.raw "show version"
//	wireline login  -p cisco.yaml -t login-capture.raw
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wireline-network/wireline/pkg/util"
	"github.com/wireline-network/wireline/pkg/version"
)

var (
	profilePath    string
	transcriptPath string
	journalPath    string
	verbose        bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "wireline",
	Short:         "Connection-observer engine for network CLI automation",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Wireline replays recorded device sessions through the observer engine.

A raw capture (bytes as read from the device) stands in for the live
connection; commands and login handshakes run against it exactly as they
would against a live session.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "Device profile YAML")
	rootCmd.PersistentFlags().StringVarP(&transcriptPath, "transcript", "t", "", "Raw session capture to replay")
	rootCmd.PersistentFlags().StringVarP(&journalPath, "journal", "j", "", "Write a transcript journal to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wireline %s\n", version.Info())
	},
}
