package cmd

import (
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/restflow/packages/loader"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Parse and lint testset files without running them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collectFiles(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no .yml or .yaml files found")
		}

		exitCode := ExitSuccess
		for _, file := range files {
			testsets, err := loader.LoadFile(file)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", file, err)
				exitCode = ExitParseError
				continue
			}
			problems := loader.Check(testsets)
			if len(problems) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", file)
				for _, p := range problems {
					fmt.Fprintf(cmd.OutOrStdout(), "    %v\n", p)
				}
				exitCode = ExitConfigError
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%d testsets)\n", file, len(testsets))
		}

		if exitCode != ExitSuccess {
			os.Exit(exitCode)
		}
		return nil
	},
}
