package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcurl/packages/import/curl"
)

var (
	curlSaveFlag    string
	curlDryRunFlag  bool
	curlCaptureFlag []string
)

var curlCmd = &cobra.Command{
	Use:   "curl '<curl command>'",
	Short: "Run a pasted curl command",
	Long: `Run a curl command line through the request builder. Quote the whole
command so its flags reach the parser rather than hitcurl.

The request follows curl's own defaults: certificates are verified unless
-k is given and redirects are followed only with -L.

Examples:
  hitcurl curl 'curl -sSL https://api.example.com/users'
  hitcurl curl 'curl -X POST -d name=widget https://api.example.com/items' --save items.yaml
  hitcurl curl 'curl -u admin:secret --digest https://api.example.com/admin' --dry-run`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: curlCommand,
}

func init() {
	curlCmd.Flags().StringVar(&curlSaveFlag, "save", "", "Save the command as a request profile")
	curlCmd.Flags().BoolVar(&curlDryRunFlag, "dry-run", false, "Print the profile instead of executing")
	curlCmd.Flags().StringArrayVar(&curlCaptureFlag, "capture", nil, "Capture name=source:path after the transfer (repeatable)")
}

func curlCommand(cmd *cobra.Command, args []string) error {
	captures, err := parseCaptures(curlCaptureFlag)
	if err != nil {
		return usageError(err)
	}

	parsed, err := curl.NewConverter().Parse(strings.Join(args, " "))
	if err != nil {
		return usageError(err)
	}

	if curlSaveFlag != "" || curlDryRunFlag {
		p, err := curl.ToProfile(parsed)
		if err != nil {
			return &exitError{code: ExitConfigError, err: err}
		}
		p.Captures = captures

		if curlSaveFlag != "" {
			if err := p.Save(curlSaveFlag); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved: %s\n", curlSaveFlag)
		}
		if curlDryRunFlag {
			data, err := yaml.Marshal(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
	}

	b, err := curl.ToBuilder(parsed, builderOptions(cmd)...)
	if err != nil {
		return usageError(err)
	}
	defer b.Close()

	current.logger.Debug().Str("name", parsed.Name).Str("method", parsed.Method).Msg("running curl command")

	f := newFormatter(cmd)
	code, err := transfer(cmd.Context(), b, f, parsed.Name, 0, captures)
	if flushErr := f.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if err != nil {
		return err
	}
	if code != ExitSuccess {
		return &exitError{code: code}
	}
	return nil
}
