// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package cmd provides the root command for the pipa CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/defenseunicorns/pipa"
	"github.com/defenseunicorns/pipa/client"
	"github.com/defenseunicorns/pipa/config"
	configv0 "github.com/defenseunicorns/pipa/config/v0"
	"github.com/defenseunicorns/pipa/project"
	"github.com/defenseunicorns/pipa/schema"
	"github.com/defenseunicorns/pipa/tracing"
	"github.com/defenseunicorns/pipa/uses"
)

// NewRootCmd creates the root command for the pipa CLI.
func NewRootCmd() *cobra.Command {
	var (
		argFlags     map[string]string
		argsFile     string
		level        string
		ver          bool
		list         bool
		explain      bool
		from         string
		policy       = uses.DefaultFetchPolicy // VarP does not allow you to set a default value
		s            string
		timeout      time.Duration
		dry          bool
		dir          string
		configPath   string
		fetchAll     bool
		gc           bool
		projectName  string
		runName      string
		artifactPath string
		watch        bool
		address      string
		traceFile    string
	)

	var cfg *configv0.Config // cfg is not set via CLI flag

	// closure initializer
	loadConfig := func(cmd *cobra.Command) error {
		switch {
		case cmd.Flags().Changed("config"):
			f, err := os.Open(configPath)
			if err != nil {
				return fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()
			cfg, err = configv0.LoadConfig(f)
			if err != nil {
				return fmt.Errorf("failed to load config file: %w", err)
			}
		case os.Getenv(config.EnvConfigPath) != "":
			f, err := os.Open(os.Getenv(config.EnvConfigPath))
			if err != nil {
				return fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()
			cfg, err = configv0.LoadConfig(f)
			if err != nil {
				return fmt.Errorf("failed to load config file: %w", err)
			}
		default:
			var err error
			cfg, err = configv0.LoadDefaultConfig()
			if err != nil {
				return err
			}
		}

		// default < cfg < flags
		if !cmd.Flags().Changed("fetch-policy") && cfg.FetchPolicy != policy {
			if err := policy.Set(cfg.FetchPolicy.String()); err != nil {
				return err // since config validates and has defaults during loading, this error is basically impossible to trigger, but leaving in case a regression happens in schema validation
			}
		}

		if !cmd.Flags().Changed("address") && cfg.Address != "" {
			address = cfg.Address
		}

		if policy == uses.FetchPolicyNever && fetchAll {
			return fmt.Errorf("cannot fetch all with fetch policy %q", policy)
		}

		return nil
	}

	root := &cobra.Command{
		Use:   "pipa",
		Short: "Compose and submit ML pipelines",
		Long: `
 ██████╗ ██╗██████╗  █████╗
 ██╔══██╗██║██╔══██╗██╔══██╗
 ██████╔╝██║██████╔╝███████║
 ██╔═══╝ ██║██╔═══╝ ██╔══██║
 ██║     ██║██║     ██║  ██║
 ╚═╝     ╚═╝╚═╝     ╚═╝  ╚═╝
`,
		Example: `
pipa

pipa -f ../training.yaml -a epochs=10 --project mlops

pipa -f "pkg:github/defenseunicorns/pipa-examples@main#pipelines/train.yaml" --dry-run
`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if dir != "" {
				if err := os.Chdir(dir); err != nil {
					return err
				}
			}

			return loadConfig(cmd)
		},
		ValidArgsFunction: func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			svc, err := uses.NewResolverService(
				uses.WithClient(&http.Client{
					Timeout: 500 * time.Millisecond,
				}),
			)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}

			// if we are a sub-command, load the cfg as PersistentPreRun isnt run
			// when performing tab completions on sub-commands
			if cmd.Parent() != nil {
				if err := loadConfig(cmd); err != nil {
					return nil, cobra.ShellCompDirectiveError
				}
			}

			resolved, err := uses.ResolveRelative(nil, from, cfg.Aliases)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}

			p, err := pipa.Fetch(cmd.Context(), svc, resolved)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}

			names := make([]string, 0, len(p.Steps))
			for _, step := range p.Steps {
				names = append(names, strings.Join([]string{step.Name, step.Uses}, "\t"))
			}

			return names, cobra.ShellCompDirectiveNoFileComp
		},
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			l, err := log.ParseLevel(level)
			if err != nil {
				return err
			}
			logger := log.FromContext(cmd.Context())
			logger.SetLevel(l)

			if traceFile != "" {
				version := ""
				if bi, ok := debug.ReadBuildInfo(); ok {
					version = bi.Main.Version
				}
				if err := tracing.Init("pipa", version, traceFile); err != nil {
					return err
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.FromContext(ctx)

			if ver && len(args) == 0 {
				bi, ok := debug.ReadBuildInfo()
				if !ok {
					return fmt.Errorf("version information not available")
				}
				switch bi.Main.Path {
				case "github.com/defenseunicorns/pipa":
					fmt.Fprintln(os.Stdout, bi.Main.Version)
				default:
					for _, dep := range bi.Deps {
						if dep.Path == "github.com/defenseunicorns/pipa" {
							fmt.Fprintln(os.Stdout, dep.Version)
							break
						}
					}
				}
				return nil
			}

			// fix fish needing "'pkg:...'" for tab completion
			from = strings.Trim(from, `"`)
			from = strings.Trim(from, `'`)

			fs := afero.NewOsFs()

			createDir := true
			if !cmd.Flags().Changed("store") {
				localStorePath := ".pipa/store"
				if fi, err := fs.Stat(localStorePath); err == nil && fi.IsDir() {
					s = localStorePath
					createDir = false
				}
			}

			s = filepath.Clean(os.ExpandEnv(s))
			if s == "." {
				s = ".pipa/store"
			}

			if createDir {
				if err := fs.MkdirAll(s, 0o744); err != nil {
					return err
				}
			}

			store, err := uses.NewLocalStore(afero.NewBasePathFs(fs, s))
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}

			svc, err := uses.NewResolverService(
				uses.WithStorage(store),
				uses.WithFetchPolicy(policy),
				uses.WithHubURL(cfg.HubURL),
			)
			if err != nil {
				return fmt.Errorf("failed to initialize resolver service: %w", err)
			}

			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
				cmd.SetContext(ctx)
			}

			resolved, err := uses.ResolveRelative(nil, from, cfg.Aliases)
			if err != nil {
				return fmt.Errorf("failed to resolve %q: %w", from, err)
			}

			p, err := pipa.Fetch(ctx, svc, resolved)
			if err != nil {
				return fmt.Errorf("failed to fetch %q: %w", resolved, err)
			}

			var proj *project.Project
			if _, err := fs.Stat(project.DefaultFileName); err == nil {
				proj, err = project.LoadFromFile(fs, "")
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", project.DefaultFileName, err)
				}
				if proj.Registry == "" {
					proj.Registry = cfg.Registry
				}
			}

			if list {
				t, err := pipa.NewDetailedStepList(ctx, svc, resolved, p, cfg.Aliases, proj)
				if err != nil {
					return err
				}

				fmt.Fprintln(os.Stdout, "Available steps:")
				fmt.Fprintln(os.Stdout, t)

				return nil
			}

			if explain {
				md, err := pipa.Explain(p, args...)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, md)
				return nil
			}

			if len(args) > 0 {
				return fmt.Errorf("step arguments are only valid with --explain: %q", args)
			}

			if fetchAll {
				logger.Debug("fetching all", "steps", p.Steps.Names(), "from", resolved)
				if err := pipa.FetchAll(ctx, svc, p, resolved, cfg.Aliases); err != nil {
					return err
				}
				if gc {
					return store.GC()
				}
				return nil
			}

			if refs := pipa.RegisteredRefs(p); len(refs) > 0 {
				logger.Debug("resolving against the project registry", "refs", refs)
			}

			p, err = pipa.ResolveRegistered(p, proj)
			if err != nil {
				return err
			}

			if proj != nil {
				if projectName == "" {
					projectName = proj.Name
				}
				if artifactPath == "" {
					artifactPath = proj.ArtifactPath
				}
			}

			runArgs := make(schema.Args, len(argFlags))

			if argsFile != "" {
				f, err := fs.Open(argsFile)
				if err != nil {
					return fmt.Errorf("failed opening args-file %q: %w", argsFile, err)
				}
				defer f.Close()
				parsed, err := pipa.ParseArgsFile(f)
				if err != nil {
					return fmt.Errorf("failed reading args-file %q: %w", argsFile, err)
				}
				for k, v := range parsed {
					runArgs[k] = v
				}
			}

			for k, v := range argFlags { // CLI --arg takes priority
				runArgs[k] = v
			}

			c, err := client.New(
				client.WithAddress(address),
				client.WithTracing(traceFile != ""),
			)
			if err != nil {
				return err
			}

			run, err := pipa.Submit(ctx, c, p, runArgs, pipa.SubmitOptions{
				Project:      projectName,
				RunName:      runName,
				ArtifactPath: artifactPath,
				Watch:        watch,
				DryRun:       dry,
			})
			if err != nil {
				return err
			}

			if run != nil {
				switch run.State {
				case client.StateError:
					return fmt.Errorf("run %s failed: %s", run.ID, run.Error)
				case client.StateAborted:
					return fmt.Errorf("run %s aborted", run.ID)
				}
			}

			if gc {
				return store.GC()
			}

			return nil
		},
	}

	root.Flags().StringToStringVarP(&argFlags, "arg", "a", nil, "Pass key=value arguments to the run")
	root.Flags().StringVar(&argsFile, "args-file", "", "Extra YAML file of key=value arguments to pass to the run")
	_ = root.MarkFlagFilename("args-file", "yaml", "yml")
	root.Flags().StringVarP(&level, "log-level", "l", "info", "Set log level")
	_ = root.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{log.DebugLevel.String(), log.InfoLevel.String(), log.WarnLevel.String(), log.ErrorLevel.String(), log.FatalLevel.String()}, cobra.ShellCompDirectiveNoFileComp
	})
	root.Flags().BoolVarP(&ver, "version", "V", false, "Print version number and exit")
	root.Flags().BoolVar(&list, "list", false, "Print list of pipeline steps and exit")
	root.Flags().BoolVar(&explain, "explain", false, "Print explanation of the pipeline/step(s) and exit")
	root.Flags().StringVarP(&from, "from", "f", "file:"+pipa.DefaultPipelineFile, "Read location as pipeline definition")
	root.Flags().DurationVarP(&timeout, "timeout", "t", time.Hour, "Maximum time allowed for submission and watch")
	root.Flags().BoolVar(&dry, "dry-run", false, "Don't actually submit anything; just print")
	root.Flags().StringVarP(&dir, "directory", "C", "", "Change to directory before doing anything")
	_ = root.MarkFlagDirname("directory")
	root.Flags().StringVar(&configPath, "config", "${HOME}/.pipa/config.yaml", "Path to pipa config file") // mirrors config.DefaultDirectory
	_ = root.MarkFlagFilename("config", "yaml", "yml")
	root.Flags().VarP(&policy, "fetch-policy", "p", fmt.Sprintf(`Set fetch policy ("%s")`, strings.Join(uses.AvailablePolicies(), `", "`)))
	_ = root.RegisterFlagCompletionFunc("fetch-policy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return uses.AvailablePolicies(), cobra.ShellCompDirectiveNoFileComp
	})
	root.Flags().StringVarP(&s, "store", "s", "${HOME}/.pipa/store", "Set storage directory")
	_ = root.MarkFlagDirname("store")
	root.Flags().BoolVar(&gc, "gc", false, "Perform garbage collection on the store")
	root.Flags().BoolVar(&fetchAll, "fetch-all", false, "Fetch all referenced functions and exit")
	root.Flags().StringVar(&projectName, "project", "", "Project to submit the run under, defaults to the project.yaml name")
	root.Flags().StringVar(&runName, "run-name", "", "Name for the run, generated when empty")
	root.Flags().StringVar(&artifactPath, "artifact-path", "", "Storage location for step outputs, {{project}} is expanded")
	root.Flags().BoolVarP(&watch, "watch", "w", true, "Watch the run until it finishes")
	root.Flags().StringVar(&address, "address", "", "pipa API server address")
	root.Flags().StringVar(&traceFile, "trace-file", "", "Write OpenTelemetry spans to a file")
	_ = root.MarkFlagFilename("trace-file", "json")

	return root
}

// Main executes the root command for the pipa CLI.
//
// It returns 0 on success, 1 on failure and logs any errors.
func Main() int {
	cli := NewRootCmd()

	ctx := context.Background()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})

	logger.SetStyles(DefaultStyles())

	ctx = log.WithContext(ctx, logger)
	cmd, err := cli.ExecuteContextC(ctx)
	if err != nil {
		logger.Print("")

		if errors.Is(cmd.Context().Err(), context.DeadlineExceeded) {
			logger.Error("run timed out")
		}

		var tErr *pipa.TraceError
		if errors.As(err, &tErr) && len(tErr.Trace) > 0 {
			trace := tErr.Trace
			slices.Reverse(trace)
			if len(trace) == 1 {
				logger.Error(tErr)
				logger.Error(trace[0])
			} else {
				logger.Error(tErr, "traceback (most recent call first)", strings.Join(trace, "\n"))
			}
		} else {
			logger.Error(err)
		}
	}
	return ParseExitCode(err)
}

// ParseExitCode calculates the exit code from a given error
//
// 0 - the error was nil
// 130 - execution was interrupted
// 1 - there was some error
func ParseExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
