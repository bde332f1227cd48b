package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcurl/packages/profile"
)

var listCmd = &cobra.Command{
	Use:   "list <profile|directory>...",
	Short: "List request profiles",
	Long: `List the request each profile sends, with its captures.

Examples:
  hitcurl list ./requests/`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectProfiles(args)
	if err != nil {
		return usageError(err)
	}

	if len(files) == 0 {
		return usageError(fmt.Errorf("no .yaml or .yml profiles found"))
	}

	for _, file := range files {
		p, err := profile.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %v\n", err)
			continue
		}

		method := strings.ToUpper(p.Method)
		if method == "" {
			method = "GET"
		}
		name := p.Name
		if name == "" {
			name = file
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %s %s\n", name, method, p.URL)
		if len(p.Captures) > 0 {
			names := make([]string, len(p.Captures))
			for i, c := range p.Captures {
				names[i] = c.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  captures: %s\n", strings.Join(names, ", "))
		}
	}

	return nil
}
