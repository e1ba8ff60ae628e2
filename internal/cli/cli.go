// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/jobfolder/internal/commands"
	"github.com/temirov/jobfolder/internal/config"
	"github.com/temirov/jobfolder/internal/output"
	"github.com/temirov/jobfolder/internal/plugin"
	"github.com/temirov/jobfolder/internal/services/clipboard"
	"github.com/temirov/jobfolder/internal/services/jobstore"
	"github.com/temirov/jobfolder/internal/types"
	"github.com/temirov/jobfolder/internal/utils"
)

const (
	versionFlagName     = "version"
	configFlagName      = "config"
	formatFlagName      = "format"
	modeFlagName        = "mode"
	manifestFlagName    = "manifest"
	exclusionFlagName   = "e"
	outputDirFlagName   = "output-dir"
	copyFlagName        = "copy"
	storeFlagName       = "store"
	jobsDirFlagName     = "jobs-dir"
	parallelismFlagName = "parallelism"
	globalFlagName      = "global"
	forceFlagName       = "force"

	versionTemplate      = "jobfolder version: %s\n"
	rootUse              = utils.ApplicationName
	rootShortDescription = "jobfolder renders HTML summaries of job output folders"
	rootLongDescription  = `jobfolder turns a job output folder into an artifact.
It renders an HTML page of hyperlinks to the folder contents, optionally writes a
MANIFEST.txt outline of the tree, and tracks validation jobs and their artifacts
in a local SQLite store.
Use --format to select raw, json, or yaml output and --version to print the application version.`

	renderUse              = "render <folder>"
	renderShortDescription = "write the HTML summary of a folder"
	renderUsageExample     = `  # Summarize a run into the current directory
  jobfolder render /data/runs/7/test_data

  # Only link top-level entries and nested index pages, and write MANIFEST.txt
  jobfolder render --mode landing --manifest /data/runs/7/test_data`

	manifestUse              = "manifest <folder>"
	manifestShortDescription = "print the manifest outline of a folder"

	validateUse              = "validate <folders...>"
	validateShortDescription = "validate folders as job-output-folder artifacts"
	validateLongDescription  = `Run one validation job per folder. Each job checks that the folder exists,
renders its summary into the job directory and registers the folder as an artifact.
Folders are processed concurrently up to --parallelism.`

	summaryUse              = "summary <artifact-id>"
	summaryShortDescription = "regenerate the HTML summary of a stored artifact"

	artifactsUse              = "artifacts [artifact-id]"
	artifactsShortDescription = "list stored artifacts, or the files of one artifact"

	jobUse              = "job <job-id>"
	jobShortDescription = "show the status and last step of a stored job"

	describeUse              = "describe"
	describeShortDescription = "show the plugin registration and artifact types"

	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initWrittenFormat    = "configuration written to %s\n"

	versionFlagDescription     = "display application version"
	configFlagDescription      = "path to a configuration file"
	formatFlagDescription      = "output format (raw, json, yaml)"
	modeFlagDescription        = "listing mode (full, landing)"
	manifestFlagDescription    = "write MANIFEST.txt into the folder"
	exclusionFlagDescription   = "exclude path pattern"
	outputDirFlagDescription   = "directory receiving summary.html"
	copyFlagDescription        = "copy the rendered HTML to the clipboard"
	storeFlagDescription       = "path to the job database"
	jobsDirFlagDescription     = "directory holding per-job output directories"
	parallelismFlagDescription = "maximum number of concurrent validation jobs"
	globalFlagDescription      = "write the global configuration instead of the local one"
	forceFlagDescription       = "overwrite an existing configuration file"

	defaultOutputDirectory = "."
	defaultParallelism     = 4

	invalidFormatMessage      = "invalid format value '%s'"
	invalidModeMessage        = "invalid listing mode '%s'"
	invalidParallelismMessage = "parallelism must be positive, got %d"
	workingDirectoryFormat    = "unable to determine working directory: %w"
	errorAbsolutePathFormat   = "abs failed for '%s': %w"
	errorReadSummaryFormat    = "reading summary %s: %w"
	errorOpenStoreFormat      = "open job store %s: %w"
	errorLoadConfigFormat     = "load configuration: %w"
	storeOpenedMessage        = "job store opened"
)

var (
	errJobsFailed = errors.New("one or more jobs failed")
	errJobFailed  = errors.New("job failed")
)

// Dependencies are the collaborators commands run against.
type Dependencies struct {
	Logger           *zap.Logger
	Copier           clipboard.Copier
	WorkingDirectory string
}

// application carries state shared by all subcommands of one invocation.
type application struct {
	dependencies  Dependencies
	configPath    string
	format        string
	configuration config.ApplicationConfiguration
}

// Execute runs the jobfolder application.
func Execute(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCommand := NewRootCommand(Dependencies{Logger: logger})
	rootCommand.SetArgs(normalizeToggleArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// NewRootCommand builds the root Cobra command and its subcommands.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Copier == nil {
		dependencies.Copier = clipboard.NewService()
	}
	app := &application{dependencies: dependencies}
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				_, err := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return err
			}
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if showVersion && command.HasParent() {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
			if command.Name() == initCommandName {
				return nil
			}
			return app.load(command)
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&app.configPath, configFlagName, "", configFlagDescription)
	rootCommand.PersistentFlags().StringVar(&app.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	rootCommand.AddCommand(
		createRenderCommand(app),
		createManifestCommand(app),
		createValidateCommand(app),
		createSummaryCommand(app),
		createArtifactsCommand(app),
		createJobCommand(app),
		createDescribeCommand(app),
		createInitCommand(app),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// load reads the configuration files and settles the output format.
func (app *application) load(command *cobra.Command) error {
	workingDirectory, err := app.workingDirectory()
	if err != nil {
		return err
	}
	configuration, err := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: app.configPath,
	})
	if err != nil {
		return fmt.Errorf(errorLoadConfigFormat, err)
	}
	app.configuration = configuration

	if !command.Flags().Changed(formatFlagName) && configuration.Format != "" {
		app.format = configuration.Format
	}
	app.format = strings.ToLower(app.format)
	if !output.IsSupportedFormat(app.format) {
		return fmt.Errorf(invalidFormatMessage, app.format)
	}
	return nil
}

func (app *application) workingDirectory() (string, error) {
	if app.dependencies.WorkingDirectory != "" {
		return app.dependencies.WorkingDirectory, nil
	}
	workingDirectory, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf(workingDirectoryFormat, err)
	}
	return workingDirectory, nil
}

// absolutePath resolves a command argument against the working directory.
func (app *application) absolutePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	workingDirectory, err := app.workingDirectory()
	if err != nil {
		return "", err
	}
	absolutePath, err := filepath.Abs(filepath.Join(workingDirectory, path))
	if err != nil {
		return "", fmt.Errorf(errorAbsolutePathFormat, path, err)
	}
	return absolutePath, nil
}

func (app *application) warn(message string) {
	app.dependencies.Logger.Warn(strings.TrimSpace(message))
}

// listingFlags holds the flags shared by commands that walk folders.
type listingFlags struct {
	mode     string
	manifest bool
	exclude  []string
}

func addListingFlags(command *cobra.Command, flags *listingFlags, withManifest bool) {
	command.Flags().StringVar(&flags.mode, modeFlagName, string(types.ListingModeFull), modeFlagDescription)
	command.Flags().StringArrayVarP(&flags.exclude, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	if withManifest {
		registerToggleFlag(command.Flags(), &flags.manifest, manifestFlagName, false, manifestFlagDescription)
	}
}

// summaryOptions combines listing flags with the summary configuration.
// Flags given on the command line win over configured values.
func (app *application) summaryOptions(command *cobra.Command, flags listingFlags) (commands.SummaryOptions, error) {
	configured := app.configuration.Summary

	mode := flags.mode
	if !command.Flags().Changed(modeFlagName) && configured.Mode != "" {
		mode = configured.Mode
	}
	listingMode := types.ListingMode(strings.ToLower(mode))
	if !listingMode.IsValid() {
		return commands.SummaryOptions{}, fmt.Errorf(invalidModeMessage, mode)
	}

	writeManifest := flags.manifest
	if !command.Flags().Changed(manifestFlagName) && configured.Manifest != nil {
		writeManifest = *configured.Manifest
	}

	patterns := make([]string, 0, len(configured.Exclude)+len(flags.exclude))
	patterns = append(patterns, configured.Exclude...)
	patterns = append(patterns, flags.exclude...)

	return commands.SummaryOptions{
		Mode:           listingMode,
		IgnorePatterns: utils.DeduplicatePatterns(patterns),
		WriteManifest:  writeManifest,
		Warn:           app.warn,
	}, nil
}

// createRenderCommand returns the render subcommand.
func createRenderCommand(app *application) *cobra.Command {
	var flags listingFlags
	var outputDirectory string
	var copyEnabled bool

	renderCommand := &cobra.Command{
		Use:     renderUse,
		Short:   renderShortDescription,
		Example: renderUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			options, err := app.summaryOptions(command, flags)
			if err != nil {
				return err
			}
			folder, err := app.absolutePath(arguments[0])
			if err != nil {
				return err
			}

			destination := outputDirectory
			if !command.Flags().Changed(outputDirFlagName) && app.configuration.Summary.OutputDirectory != "" {
				destination = app.configuration.Summary.OutputDirectory
			}
			destination, err = app.absolutePath(destination)
			if err != nil {
				return err
			}

			result, err := commands.GenerateSummary(folder, destination, options)
			if err != nil {
				return err
			}

			shouldCopy := copyEnabled
			if !command.Flags().Changed(copyFlagName) && app.configuration.Summary.Copy != nil {
				shouldCopy = *app.configuration.Summary.Copy
			}
			if shouldCopy {
				rendered, readErr := os.ReadFile(result.SummaryPath)
				if readErr != nil {
					return fmt.Errorf(errorReadSummaryFormat, result.SummaryPath, readErr)
				}
				if copyErr := app.dependencies.Copier.Copy(string(rendered)); copyErr != nil {
					return copyErr
				}
			}
			return output.RenderSummaryResults(command.OutOrStdout(), app.format, []types.SummaryResult{result})
		},
	}
	addListingFlags(renderCommand, &flags, true)
	renderCommand.Flags().StringVar(&outputDirectory, outputDirFlagName, defaultOutputDirectory, outputDirFlagDescription)
	registerToggleFlag(renderCommand.Flags(), &copyEnabled, copyFlagName, false, copyFlagDescription)
	return renderCommand
}

// createManifestCommand returns the manifest subcommand. It prints the
// outline without writing anything.
func createManifestCommand(app *application) *cobra.Command {
	var flags listingFlags

	manifestCommand := &cobra.Command{
		Use:   manifestUse,
		Short: manifestShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			options, err := app.summaryOptions(command, flags)
			if err != nil {
				return err
			}
			folder, err := app.absolutePath(arguments[0])
			if err != nil {
				return err
			}
			listing, err := commands.ListFolder(folder, commands.FolderListingOptions{
				Mode:            options.Mode,
				IgnorePatterns:  options.IgnorePatterns,
				ExcludeManifest: true,
				Warn:            options.Warn,
			})
			if err != nil {
				return err
			}
			if len(listing.ManifestLines) == 0 {
				return nil
			}
			_, err = fmt.Fprintln(command.OutOrStdout(), listing.Manifest())
			return err
		},
	}
	addListingFlags(manifestCommand, &flags, false)
	return manifestCommand
}

// storeFlags locate the job database and per-job directories.
type storeFlags struct {
	path          string
	jobsDirectory string
}

func addStoreFlags(command *cobra.Command, flags *storeFlags) {
	command.Flags().StringVar(&flags.path, storeFlagName, "", storeFlagDescription)
	command.Flags().StringVar(&flags.jobsDirectory, jobsDirFlagName, "", jobsDirFlagDescription)
}

// openStore opens the job database and resolves the jobs directory.
func (app *application) openStore(flags storeFlags) (*jobstore.Store, string, error) {
	storeConfiguration := app.configuration.Store
	if flags.path != "" {
		storeConfiguration.Path = flags.path
	}
	if flags.jobsDirectory != "" {
		storeConfiguration.JobsDirectory = flags.jobsDirectory
	}
	storePath, err := storeConfiguration.StorePathOrDefault()
	if err != nil {
		return nil, "", err
	}
	if storePath != jobstore.InMemoryPath {
		if storePath, err = app.absolutePath(storePath); err != nil {
			return nil, "", err
		}
	}
	jobsDirectory, err := storeConfiguration.JobsDirectoryOrDefault()
	if err != nil {
		return nil, "", err
	}
	if jobsDirectory, err = app.absolutePath(jobsDirectory); err != nil {
		return nil, "", err
	}
	store, err := jobstore.NewStore(storePath)
	if err != nil {
		return nil, "", fmt.Errorf(errorOpenStoreFormat, storePath, err)
	}
	app.dependencies.Logger.Debug(storeOpenedMessage, zap.String("path", store.Path()), zap.String("jobs", jobsDirectory))
	return store, jobsDirectory, nil
}

// createValidateCommand returns the validate subcommand.
func createValidateCommand(app *application) *cobra.Command {
	var flags listingFlags
	var store storeFlags
	var parallelism int

	validateCommand := &cobra.Command{
		Use:   validateUse,
		Short: validateShortDescription,
		Long:  validateLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			options, err := app.summaryOptions(command, flags)
			if err != nil {
				return err
			}
			limit := parallelism
			if !command.Flags().Changed(parallelismFlagName) && app.configuration.Validate.Parallelism != nil {
				limit = *app.configuration.Validate.Parallelism
			}
			if limit < 1 {
				return fmt.Errorf(invalidParallelismMessage, limit)
			}
			folders, err := app.resolveFolders(arguments)
			if err != nil {
				return err
			}

			jobStore, jobsDirectory, err := app.openStore(store)
			if err != nil {
				return err
			}
			defer jobStore.Close()

			runner := plugin.New(jobStore, options, app.dependencies.Logger)
			results := make([]types.ValidationResult, len(folders))
			group, groupContext := errgroup.WithContext(command.Context())
			group.SetLimit(limit)
			for index, folder := range folders {
				index, folder := index, folder
				group.Go(func() error {
					results[index] = app.validateFolder(groupContext, jobStore, runner, jobsDirectory, folder)
					return nil
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}

			if err := output.RenderValidationResults(command.OutOrStdout(), app.format, results); err != nil {
				return err
			}
			for _, result := range results {
				if !result.Success {
					return errJobsFailed
				}
			}
			return nil
		},
	}
	addListingFlags(validateCommand, &flags, true)
	addStoreFlags(validateCommand, &store)
	validateCommand.Flags().IntVar(&parallelism, parallelismFlagName, defaultParallelism, parallelismFlagDescription)
	return validateCommand
}

// resolveFolders makes folders absolute and drops duplicates so concurrent
// jobs never share a manifest path.
func (app *application) resolveFolders(inputs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(inputs))
	folders := make([]string, 0, len(inputs))
	for _, input := range inputs {
		folder, err := app.absolutePath(input)
		if err != nil {
			return nil, err
		}
		if _, duplicate := seen[folder]; duplicate {
			continue
		}
		seen[folder] = struct{}{}
		folders = append(folders, folder)
	}
	return folders, nil
}

// validateFolder runs a single validation job and records its outcome.
func (app *application) validateFolder(ctx context.Context, store *jobstore.Store, runner *plugin.Plugin, jobsDirectory string, folder string) types.ValidationResult {
	logger := app.dependencies.Logger
	jobID, err := store.CreateJob(ctx, plugin.ValidateCommandName)
	if err != nil {
		return types.ValidationResult{Folder: folder, ErrorMessage: err.Error()}
	}

	result, err := runner.Validate(ctx, jobID, plugin.NewValidateRequest(folder), filepath.Join(jobsDirectory, jobID))
	if err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
	}
	if result.Success {
		for index := range result.Artifacts {
			artifactID, registerErr := store.RegisterArtifact(ctx, jobID, result.Artifacts[index])
			if registerErr != nil {
				result.Success = false
				result.ErrorMessage = registerErr.Error()
				break
			}
			result.Artifacts[index].ID = artifactID
		}
	}
	if !result.Success {
		result.Artifacts = nil
	}
	if completeErr := store.CompleteJob(ctx, jobID, result.Success, result.ErrorMessage); completeErr != nil {
		logger.Warn("recording job outcome failed", zap.String("job", jobID), zap.Error(completeErr))
	}
	return result
}

// createSummaryCommand returns the summary subcommand.
func createSummaryCommand(app *application) *cobra.Command {
	var flags listingFlags
	var store storeFlags

	summaryCommand := &cobra.Command{
		Use:   summaryUse,
		Short: summaryShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			options, err := app.summaryOptions(command, flags)
			if err != nil {
				return err
			}
			jobStore, jobsDirectory, err := app.openStore(store)
			if err != nil {
				return err
			}
			defer jobStore.Close()

			ctx := command.Context()
			jobID, err := jobStore.CreateJob(ctx, plugin.SummaryCommandName)
			if err != nil {
				return err
			}
			runner := plugin.New(jobStore, options, app.dependencies.Logger)
			result, err := runner.GenerateHTMLSummary(ctx, jobID, arguments[0], filepath.Join(jobsDirectory, jobID))
			if err != nil {
				result.Success = false
				result.ErrorMessage = err.Error()
			}
			if completeErr := jobStore.CompleteJob(ctx, jobID, result.Success, result.ErrorMessage); completeErr != nil {
				app.dependencies.Logger.Warn("recording job outcome failed", zap.String("job", jobID), zap.Error(completeErr))
			}

			if err := output.RenderJobResult(command.OutOrStdout(), app.format, result); err != nil {
				return err
			}
			if !result.Success {
				return errJobFailed
			}
			return nil
		},
	}
	addListingFlags(summaryCommand, &flags, true)
	addStoreFlags(summaryCommand, &store)
	return summaryCommand
}

// createArtifactsCommand returns the artifacts subcommand.
func createArtifactsCommand(app *application) *cobra.Command {
	var store storeFlags

	artifactsCommand := &cobra.Command{
		Use:   artifactsUse,
		Short: artifactsShortDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			jobStore, _, err := app.openStore(store)
			if err != nil {
				return err
			}
			defer jobStore.Close()

			if len(arguments) == 1 {
				files, err := jobStore.ArtifactFiles(command.Context(), arguments[0])
				if err != nil {
					return err
				}
				return output.RenderArtifactFiles(command.OutOrStdout(), app.format, files)
			}
			artifacts, err := jobStore.ListArtifacts(command.Context())
			if err != nil {
				return err
			}
			return output.RenderArtifacts(command.OutOrStdout(), app.format, artifacts)
		},
	}
	addStoreFlags(artifactsCommand, &store)
	return artifactsCommand
}

// createJobCommand returns the job subcommand.
func createJobCommand(app *application) *cobra.Command {
	var store storeFlags

	jobCommand := &cobra.Command{
		Use:   jobUse,
		Short: jobShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			jobStore, _, err := app.openStore(store)
			if err != nil {
				return err
			}
			defer jobStore.Close()

			record, err := jobStore.GetJob(command.Context(), arguments[0])
			if err != nil {
				return err
			}
			return output.RenderJobRecord(command.OutOrStdout(), app.format, record)
		},
	}
	addStoreFlags(jobCommand, &store)
	return jobCommand
}

// createDescribeCommand returns the describe subcommand.
func createDescribeCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   describeUse,
		Short: describeShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return output.RenderRegistration(command.OutOrStdout(), app.format, plugin.Describe())
		},
	}
}

const initCommandName = "init"

// createInitCommand returns the init subcommand.
func createInitCommand(app *application) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			workingDirectory, err := app.workingDirectory()
			if err != nil {
				return err
			}
			path, err := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: workingDirectory,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(command.OutOrStdout(), initWrittenFormat, path)
			return err
		},
	}
	registerToggleFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerToggleFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}
