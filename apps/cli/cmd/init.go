package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcurl/packages/capture"
	"github.com/abdul-hamid-achik/hitcurl/packages/core/config"
	"github.com/abdul-hamid-achik/hitcurl/packages/profile"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and an example profile",
	Long: `Initialize hitcurl in the current directory.

This creates:
  - .hitcurl.yaml  - Configuration applied to every request
  - example.yaml   - Example request profile
  - .env           - Variables used by the example

Examples:
  hitcurl init
  hitcurl init --force`,
	Args: usageArgs(cobra.NoArgs),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	exampleFile := filepath.Join(cwd, "example.yaml")
	envFile := filepath.Join(cwd, ".env")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile, envFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.Headers = map[string]string{"User-Agent": "hitcurl/" + version}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	example := &profile.Profile{
		Name:   "example",
		URL:    "{{baseUrl}}/anything",
		Method: "POST",
		Headers: map[string]string{
			"Accept": "application/json",
		},
		Form: map[string]string{
			"id":   "{{uuid()}}",
			"user": "{{$USER}}",
		},
		Captures: []capture.Spec{
			{Name: "origin", Source: capture.SourceBody, Path: "origin"},
			{Name: "status", Source: capture.SourceStatus},
		},
	}
	if err := example.Save(exampleFile); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	if err := os.WriteFile(envFile, []byte("baseUrl=https://httpbin.org\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .env file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitcurl initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hitcurl run example.yaml' to send the example request.\n")

	return nil
}
