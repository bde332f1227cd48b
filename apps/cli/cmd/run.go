package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitcurl/packages/core/config"
	"github.com/abdul-hamid-achik/hitcurl/packages/core/env"
	"github.com/abdul-hamid-achik/hitcurl/packages/output"
	"github.com/abdul-hamid-achik/hitcurl/packages/profile"
	"github.com/abdul-hamid-achik/hitcurl/packages/stats"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	runVarFlags    []string
	runEnvFileFlag string
	runRepeatFlag  int
	runRateFlag    float64
	runBailFlag    bool
	runWatchFlag   bool
)

var runCmd = &cobra.Command{
	Use:   "run <profile|directory>...",
	Short: "Run saved request profiles",
	Long: `Run request profiles written in YAML. Profiles run in order and share
one variable scope, so a capture from one profile can feed the next as
{{profile-name.capture}}.

Variables come from .env and .env.local next to the first profile, then
HITCURL_VAR_* environment variables, then --env-file, then --var.

Examples:
  hitcurl run login.yaml profile.yaml
  hitcurl run ./requests/ --var baseUrl=http://localhost:8080
  hitcurl run health.yaml --repeat 100 --rate 20
  hitcurl run api.yaml --watch`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: runCommand,
}

func init() {
	runCmd.Flags().StringArrayVar(&runVarFlags, "var", nil, "Set a variable name=value (repeatable)")
	runCmd.Flags().StringVar(&runEnvFileFlag, "env-file", getEnvString("HITCURL_ENV_FILE", ""), "Path to .env file for variable interpolation (env: HITCURL_ENV_FILE)")
	runCmd.Flags().IntVarP(&runRepeatFlag, "repeat", "n", getEnvInt("HITCURL_REPEAT", 1), "Execute each profile this many times (env: HITCURL_REPEAT)")
	runCmd.Flags().Float64VarP(&runRateFlag, "rate", "r", 0, "Maximum executions per second when repeating, 0 for no limit")
	runCmd.Flags().BoolVar(&runBailFlag, "bail", getEnvBool("HITCURL_BAIL", false), "Stop on first failure (env: HITCURL_BAIL)")
	runCmd.Flags().BoolVarP(&runWatchFlag, "watch", "w", false, "Watch profiles for changes and re-run")
}

func runCommand(cmd *cobra.Command, args []string) error {
	if runRepeatFlag < 1 {
		return usageError(fmt.Errorf("--repeat must be at least 1, got %d", runRepeatFlag))
	}
	if runRateFlag < 0 {
		return usageError(fmt.Errorf("--rate must not be negative"))
	}

	files, err := collectProfiles(args)
	if err != nil {
		return usageError(err)
	}
	if len(files) == 0 {
		return usageError(fmt.Errorf("no .yaml or .yml profiles found"))
	}

	vars, err := loadRunVariables(filepath.Dir(files[0]))
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}

	run := func() (int, error) {
		f := newFormatter(cmd)
		code, err := runProfiles(cmd, files, vars, f)
		if flushErr := f.Flush(); flushErr != nil && err == nil {
			err = fmt.Errorf("error writing output: %w", flushErr)
		}
		return code, err
	}

	code, err := run()
	if !runWatchFlag {
		if err != nil {
			return err
		}
		if code != ExitSuccess {
			return &exitError{code: code}
		}
		return nil
	}
	if err != nil {
		current.logger.Error().Err(err).Msg("run failed")
	}

	return watchProfiles(cmd, files, func() {
		if _, err := run(); err != nil {
			current.logger.Error().Err(err).Msg("run failed")
		}
	})
}

// runProfiles executes every profile in order with one shared resolver
func runProfiles(cmd *cobra.Command, files []string, vars map[string]string, f output.Formatter) (int, error) {
	ctx := cmd.Context()
	resolver := env.NewResolver()
	resolver.SetStringVariables(vars)
	resolver.SetWarnFunc(func(format string, args ...any) {
		current.logger.Warn().Msgf(format, args...)
	})

	code := ExitSuccess
	for _, file := range files {
		p, err := profile.Load(file)
		if err != nil {
			f.FormatError(err)
			code = worstExit(code, ExitConfigError)
			if runBailFlag {
				break
			}
			continue
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}
		applyConfigDefaults(current.cfg, p)

		profileCode, err := runProfile(ctx, cmd, p, resolver, f)
		if err != nil {
			return code, err
		}
		code = worstExit(code, profileCode)
		if runBailFlag && profileCode != ExitSuccess {
			break
		}
	}
	return code, nil
}

func runProfile(ctx context.Context, cmd *cobra.Command, p *profile.Profile, resolver *env.Resolver, f output.Formatter) (int, error) {
	b, err := p.Build(resolver, builderOptions(cmd)...)
	if err != nil {
		f.FormatError(fmt.Errorf("%s: %w", p.Name, err))
		return ExitConfigError, nil
	}
	defer b.Close()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if runRateFlag > 0 {
		limiter = rate.NewLimiter(rate.Limit(runRateFlag), 1)
	}

	var latency *stats.Latency
	if runRepeatFlag > 1 {
		latency = stats.NewLatency(p.Name)
		defer func() {
			if latency.Count() > 0 {
				f.FormatLatency(latency.Summary())
			}
		}()
	}

	code := ExitSuccess
	for i := 1; i <= runRepeatFlag; i++ {
		if err := limiter.Wait(ctx); err != nil {
			// interrupted
			return code, nil
		}

		iteration := 0
		if runRepeatFlag > 1 {
			iteration = i
		}
		iterCode, err := transfer(ctx, b, f, p.Name, iteration, p.Captures)
		if err != nil {
			return code, err
		}
		if latency != nil {
			latency.Record(b.Result().Duration, iterCode != ExitSuccess)
		}
		if len(p.Captures) > 0 && iterCode == ExitSuccess {
			p.Capture(b.Result(), resolver)
		}
		code = worstExit(code, iterCode)
		if runBailFlag && iterCode != ExitSuccess {
			break
		}
	}
	return code, nil
}

// applyConfigDefaults fills the settings a profile leaves unset from the
// loaded config
func applyConfigDefaults(cfg *config.Config, p *profile.Profile) {
	if cfg == nil {
		return
	}
	if p.Timeout == 0 {
		p.Timeout = cfg.Timeout
	}
	if p.ConnectTimeout == 0 {
		p.ConnectTimeout = cfg.ConnectTimeout
	}
	if p.FollowRedirects == nil {
		p.FollowRedirects = cfg.FollowRedirects
	}
	if p.MaxRedirects == nil {
		p.MaxRedirects = cfg.MaxRedirects
	}
	if p.VerifySSL == nil {
		p.VerifySSL = cfg.ValidateSSL
	}
	if p.FailOnError == nil {
		p.FailOnError = cfg.FailOnError
	}
	if p.Encoding == nil {
		p.Encoding = cfg.Encoding
	}
	if p.Auth != nil && p.Auth.Scheme == "" {
		p.Auth.Scheme = cfg.AuthScheme
	}
	p.Headers = underlay(cfg.Headers, p.Headers)
	p.Cookies = underlay(cfg.Cookies, p.Cookies)
}

// underlay returns top with any keys from base it lacks
func underlay(base, top map[string]string) map[string]string {
	if len(base) == 0 {
		return top
	}
	merged := make(map[string]string, len(base)+len(top))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range top {
		merged[k] = v
	}
	return merged
}

func loadRunVariables(dir string) (map[string]string, error) {
	vars, err := env.LoadVariables(dir)
	if err != nil {
		return nil, err
	}

	if runEnvFileFlag != "" {
		fileVars, err := env.LoadDotEnv(runEnvFileFlag)
		if err != nil {
			return nil, err
		}
		vars = env.MergeVariables(vars, fileVars)
	}

	for _, kv := range runVarFlags {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q, want name=value", kv)
		}
		vars[name] = value
	}
	return vars, nil
}

// watchProfiles calls rerun whenever one of files is written, until the
// command context is cancelled
func watchProfiles(cmd *cobra.Command, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	watchedDirs := make(map[string]bool)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		watched[abs] = true

		// Editors often replace files, so watch the directory.
		dir := filepath.Dir(abs)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			watchedDirs[dir] = true
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounce <-chan time.Time
	var changed string
	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if abs, err := filepath.Abs(event.Name); err == nil && watched[abs] {
				changed = event.Name
				debounce = time.After(WatchDebounceDelay)
			}

		case <-debounce:
			debounce = nil
			fmt.Fprintf(cmd.ErrOrStderr(), "\nFile changed: %s\nRe-running...\n\n", changed)
			rerun()
			fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			current.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func collectProfiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isProfileFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if isProfileFile(arg) {
			files = append(files, arg)
		}
	}

	return files, nil
}

func isProfileFile(path string) bool {
	ext := filepath.Ext(path)
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	// config files live next to profiles
	for _, name := range config.ConfigFilenames {
		if filepath.Base(path) == name {
			return false
		}
	}
	return true
}
