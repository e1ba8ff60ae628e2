// Package plugin implements the job-output-folder artifact type: validating a new
// folder artifact and attaching an HTML summary to an existing one.
package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/jobfolder/internal/commands"
	"github.com/temirov/jobfolder/internal/types"
)

const (
	// Name identifies the plugin to the data management server.
	Name = "qtp-job-output-folder"
	// Version is the plugin release reported to the server.
	Version = "2021.08"
	// Description is the human-readable plugin description.
	Description = "job-output-folder artifact types plugin"

	// ValidateCommandName names the validation command.
	ValidateCommandName = "Validate"
	// SummaryCommandName names the summary command.
	SummaryCommandName = "Generate HTML summary"

	stepValidatingDirectory = "Step 1: Validating directory"
	stepGeneratingArtifact  = "Step 2: Generating artifact"

	missingFolderMessageFormat = "%s does not exist or is not a folder"

	errorDecodeFilesFormat   = "decode files parameter: %w"
	errorUpdateStepFormat    = "update step of job %s: %w"
	errorArtifactFormat      = "look up artifact %s: %w"
	errorRenderSummaryFormat = "render summary of %s: %w"
)

// ErrNoDirectory is returned when the files parameter lists no directory.
var ErrNoDirectory = errors.New("files parameter lists no directory")

// FilepathType is a file kind an artifact type accepts.
type FilepathType struct {
	Name     string `json:"name" yaml:"name"`
	Required bool   `json:"required" yaml:"required"`
}

// ArtifactType describes an artifact type registered by the plugin.
type ArtifactType struct {
	Name                  string         `json:"name" yaml:"name"`
	Description           string         `json:"description" yaml:"description"`
	CanBeSubmittedToEBI   bool           `json:"canBeSubmittedToEbi" yaml:"canBeSubmittedToEbi"`
	CanBeSubmittedToVAMPS bool           `json:"canBeSubmittedToVamps" yaml:"canBeSubmittedToVamps"`
	IsUserUploadable      bool           `json:"isUserUploadable" yaml:"isUserUploadable"`
	FilepathTypes         []FilepathType `json:"filepathTypes" yaml:"filepathTypes"`
}

// ArtifactTypes lists the artifact types this plugin registers.
var ArtifactTypes = []ArtifactType{
	{
		Name:          types.ArtifactTypeJobOutputFolder,
		Description:   "Job Output Folder",
		FilepathTypes: []FilepathType{{Name: types.FilepathTypeDirectory, Required: true}},
	},
}

// Registration is what the plugin announces about itself.
type Registration struct {
	Name          string         `json:"name" yaml:"name"`
	Version       string         `json:"version" yaml:"version"`
	Description   string         `json:"description" yaml:"description"`
	Commands      []string       `json:"commands" yaml:"commands"`
	ArtifactTypes []ArtifactType `json:"artifactTypes" yaml:"artifactTypes"`
}

// Describe returns the plugin registration.
func Describe() Registration {
	return Registration{
		Name:          Name,
		Version:       Version,
		Description:   Description,
		Commands:      []string{ValidateCommandName, SummaryCommandName},
		ArtifactTypes: ArtifactTypes,
	}
}

// JobTracker is the part of the data management server the plugin talks to.
type JobTracker interface {
	UpdateJobStep(ctx context.Context, jobID string, step string) error
	ArtifactFolder(ctx context.Context, artifactID string) (string, error)
	AddHTMLSummary(ctx context.Context, artifactID string, summary types.HTMLSummary) error
}

// ValidateRequest carries the parameters of a validation job. Files holds a JSON
// object mapping filepath types to paths, e.g. {"directory": ["/data/run"]}.
type ValidateRequest struct {
	Files string `json:"files"`
}

// Folder returns the first directory listed in the request.
func (request ValidateRequest) Folder() (string, error) {
	var files map[string][]string
	if err := json.Unmarshal([]byte(request.Files), &files); err != nil {
		return "", fmt.Errorf(errorDecodeFilesFormat, err)
	}
	directories := files[types.FilepathTypeDirectory]
	if len(directories) == 0 {
		return "", ErrNoDirectory
	}
	return directories[0], nil
}

// NewValidateRequest encodes folder as the files parameter of a validation job.
func NewValidateRequest(folder string) ValidateRequest {
	encoded, _ := json.Marshal(map[string][]string{types.FilepathTypeDirectory: {folder}})
	return ValidateRequest{Files: string(encoded)}
}

// Plugin runs job-output-folder jobs against a JobTracker.
type Plugin struct {
	tracker JobTracker
	options commands.SummaryOptions
	logger  *zap.Logger
}

// New builds a Plugin. A nil logger disables logging.
func New(tracker JobTracker, options commands.SummaryOptions, logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.Warn == nil {
		options.Warn = func(message string) {
			logger.Warn(strings.TrimSpace(message))
		}
	}
	return &Plugin{tracker: tracker, options: options, logger: logger}
}

// Validate checks that the requested folder exists and, if so, renders its summary
// into outputDirectory and describes the resulting artifact. A missing folder is
// reported through the result; errors are reserved for tracker and I/O failures.
func (plugin *Plugin) Validate(ctx context.Context, jobID string, request ValidateRequest, outputDirectory string) (types.ValidationResult, error) {
	result := types.ValidationResult{JobID: jobID}
	if err := plugin.tracker.UpdateJobStep(ctx, jobID, stepValidatingDirectory); err != nil {
		return result, fmt.Errorf(errorUpdateStepFormat, jobID, err)
	}

	folder, err := request.Folder()
	if err != nil {
		return result, err
	}
	result.Folder = folder

	if !commands.FolderExists(folder) {
		result.ErrorMessage = fmt.Sprintf(missingFolderMessageFormat, folder)
		plugin.logger.Info("folder rejected", zap.String("job", jobID), zap.String("folder", folder))
		return result, nil
	}

	if err := plugin.tracker.UpdateJobStep(ctx, jobID, stepGeneratingArtifact); err != nil {
		return result, fmt.Errorf(errorUpdateStepFormat, jobID, err)
	}

	summary, err := commands.GenerateSummary(folder, outputDirectory, plugin.options)
	if err != nil {
		return result, fmt.Errorf(errorRenderSummaryFormat, folder, err)
	}

	files := []types.ArtifactFile{
		{Path: folder, Type: types.FilepathTypeDirectory},
		{Path: summary.SummaryPath, Type: types.FilepathTypeHTMLSummary},
	}
	if summary.SupportDirectoryPath != "" {
		files = append(files, types.ArtifactFile{Path: summary.SupportDirectoryPath, Type: types.FilepathTypeHTMLSummaryDir})
	}
	result.Success = true
	result.Artifacts = []types.ArtifactInfo{{Type: types.ArtifactTypeJobOutputFolder, Files: files}}
	plugin.logger.Info("folder validated",
		zap.String("job", jobID),
		zap.String("folder", folder),
		zap.Int("entries", summary.EntryCount))
	return result, nil
}

// GenerateHTMLSummary renders the summary of an existing artifact into
// outputDirectory and attaches it to the artifact. A tracker failure while
// attaching is reported through the result.
func (plugin *Plugin) GenerateHTMLSummary(ctx context.Context, jobID string, artifactID string, outputDirectory string) (types.JobResult, error) {
	result := types.JobResult{JobID: jobID}
	folder, err := plugin.tracker.ArtifactFolder(ctx, artifactID)
	if err != nil {
		return result, fmt.Errorf(errorArtifactFormat, artifactID, err)
	}

	summary, err := commands.GenerateSummary(folder, outputDirectory, plugin.options)
	if err != nil {
		return result, fmt.Errorf(errorRenderSummaryFormat, folder, err)
	}

	if err := plugin.tracker.AddHTMLSummary(ctx, artifactID, SummaryPayload(summary)); err != nil {
		result.ErrorMessage = err.Error()
		plugin.logger.Warn("attaching summary failed", zap.String("artifact", artifactID), zap.Error(err))
		return result, nil
	}
	result.Success = true
	plugin.logger.Info("summary attached",
		zap.String("job", jobID),
		zap.String("artifact", artifactID),
		zap.String("summary", summary.SummaryPath))
	return result, nil
}

// SummaryPayload converts a rendered summary into the artifact patch payload.
func SummaryPayload(summary types.SummaryResult) types.HTMLSummary {
	payload := types.HTMLSummary{HTMLPath: summary.SummaryPath}
	if summary.SupportDirectoryPath != "" {
		supportDirectory := summary.SupportDirectoryPath
		payload.SupportDirectoryPath = &supportDirectory
	}
	return payload
}
