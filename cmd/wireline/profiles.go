package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wireline-network/wireline/pkg/cli"
	"github.com/wireline-network/wireline/pkg/profile"
	"github.com/wireline-network/wireline/pkg/settings"
)

var profilesDir string

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List and validate device profiles",
	Long: `Profiles loads every profile in a directory, validates it, and prints a
summary. The directory comes from --dir or from profiles_dir in the user
settings file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := profilesDir
		if dir == "" {
			s, err := settings.Load()
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}
			dir = s.ProfilesDir
		}
		if dir == "" {
			return fmt.Errorf("no profiles directory: pass --dir or set profiles_dir in %s", settings.DefaultSettingsPath())
		}

		profiles, err := profile.LoadAll(dir)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		tbl := cli.NewTable("NAME", "CONNECT", "PROMPT", "TIMEOUT")
		for _, name := range names {
			p := profiles[name]
			tbl.Row(p.Name, p.ConnectCommand, p.Prompt, p.Timeout.Std().String())
		}
		tbl.Flush()
		fmt.Printf("%s\n", cli.Dim(fmt.Sprintf("%d profile(s) in %s", len(names), dir)))
		return nil
	},
}

func init() {
	profilesCmd.Flags().StringVar(&profilesDir, "dir", "", "Profiles directory")
}
