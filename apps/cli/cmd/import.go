package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcurl/packages/import/curl"
)

var (
	importOutputFlag  string
	importForceFlag   bool
	importNoFileReads bool
)

var importCmd = &cobra.Command{
	Use:   "import <curl-file>",
	Short: "Convert a file of curl commands into request profiles",
	Long: `Import curl commands from a file and write one YAML profile per command.

Blank lines and lines starting with # are skipped. A trailing backslash
continues a command on the next line, as in a shell script.

Examples:
  hitcurl import requests.sh
  hitcurl import requests.sh -d profiles/
  hitcurl import requests.sh --force`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: importCommand,
}

func init() {
	importCmd.Flags().StringVarP(&importOutputFlag, "dir", "d", ".", "Directory for the generated profiles")
	importCmd.Flags().BoolVarP(&importForceFlag, "force", "f", false, "Overwrite existing profiles")
	importCmd.Flags().BoolVar(&importNoFileReads, "no-file-reads", false, "Keep -d @file values literally instead of reading the file")
}

func importCommand(cmd *cobra.Command, args []string) error {
	converter := curl.NewConverter(curl.WithFileReads(!importNoFileReads))

	commands, err := converter.ParseFile(args[0])
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}
	if len(commands) == 0 {
		return usageError(fmt.Errorf("no curl commands found in %s", args[0]))
	}

	if err := os.MkdirAll(importOutputFlag, 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	used := make(map[string]int)
	for _, parsed := range commands {
		p, err := curl.ToProfile(parsed)
		if err != nil {
			return &exitError{code: ExitConfigError, err: fmt.Errorf("%s: %w", parsed.Name, err)}
		}

		// two commands against the same endpoint get numbered names
		used[p.Name]++
		if n := used[p.Name]; n > 1 {
			p.Name = fmt.Sprintf("%s_%d", p.Name, n)
		}

		path := filepath.Join(importOutputFlag, p.Name+".yaml")
		if !importForceFlag {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", path)
			}
		}
		if err := p.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nImported %d profile(s)\n", len(commands))
	return nil
}
