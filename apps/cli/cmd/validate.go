package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcurl/packages/profile"
)

var validateCmd = &cobra.Command{
	Use:   "validate <profile|directory>...",
	Short: "Validate request profiles",
	Long: `Validate request profiles without executing them.

Examples:
  hitcurl validate login.yaml
  hitcurl validate ./requests/`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectProfiles(args)
	if err != nil {
		return usageError(err)
	}

	if len(files) == 0 {
		return usageError(fmt.Errorf("no .yaml or .yml profiles found"))
	}

	hasErrors := false
	for _, file := range files {
		if _, err := profile.Load(file); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %v\n", err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return &exitError{code: ExitConfigError, err: fmt.Errorf("validation failed")}
	}

	return nil
}
