// Package types defines every cross‑package data structure used by the jobfolder CLI.
package types

const (
	EntryKindFile   = "file"
	EntryKindFolder = "folder"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatYAML = "yaml"

	ArtifactTypeJobOutputFolder = "job-output-folder"

	FilepathTypeDirectory      = "directory"
	FilepathTypeHTMLSummary    = "html_summary"
	FilepathTypeHTMLSummaryDir = "html_summary_dir"
)

// ListingMode selects which directory entries become hyperlinks in a summary.
type ListingMode string

const (
	// ListingModeFull links every file and folder at every depth.
	ListingModeFull ListingMode = "full"
	// ListingModeLanding links root entries plus every nested index.html.
	ListingModeLanding ListingMode = "landing"
)

// IsValid reports whether the mode is one of the known listing modes.
func (mode ListingMode) IsValid() bool {
	switch mode {
	case ListingModeFull, ListingModeLanding:
		return true
	default:
		return false
	}
}

// DirectoryEntry is one file or folder found while walking an artifact folder.
type DirectoryEntry struct {
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
}

// SummaryResult describes the files written for one rendered summary.
type SummaryResult struct {
	RootFolder           string `json:"rootFolder" yaml:"rootFolder"`
	SummaryPath          string `json:"summaryPath" yaml:"summaryPath"`
	SupportDirectoryPath string `json:"supportDirectoryPath,omitempty" yaml:"supportDirectoryPath,omitempty"`
	ManifestPath         string `json:"manifestPath,omitempty" yaml:"manifestPath,omitempty"`
	EntryCount           int    `json:"entryCount" yaml:"entryCount"`
	FolderExists         bool   `json:"folderExists" yaml:"folderExists"`
}

// ArtifactFile is one registered file of an artifact together with its filepath type.
type ArtifactFile struct {
	Path string `json:"filepath" yaml:"filepath"`
	Type string `json:"filepathType" yaml:"filepathType"`
}

// ArtifactInfo describes an artifact produced by a validation job.
type ArtifactInfo struct {
	ID         int64          `json:"id,omitempty" yaml:"id,omitempty"`
	OutputName string         `json:"outputName,omitempty" yaml:"outputName,omitempty"`
	Type       string         `json:"type" yaml:"type"`
	Files      []ArtifactFile `json:"files" yaml:"files"`
}

// HTMLSummary is the payload attached to an artifact once its summary exists.
// An empty SupportDirectoryPath is encoded as null.
type HTMLSummary struct {
	HTMLPath             string  `json:"html"`
	SupportDirectoryPath *string `json:"dir"`
}

// ValidationResult is the outcome of validating a new artifact.
type ValidationResult struct {
	JobID        string         `json:"jobId" yaml:"jobId"`
	Folder       string         `json:"folder" yaml:"folder"`
	Success      bool           `json:"success" yaml:"success"`
	Artifacts    []ArtifactInfo `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
}

// JobResult is the outcome of a job that does not create artifacts.
type JobResult struct {
	JobID        string `json:"jobId" yaml:"jobId"`
	Success      bool   `json:"success" yaml:"success"`
	ErrorMessage string `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
}

// Job statuses stored for every tracked job.
const (
	JobStatusRunning = "running"
	JobStatusSuccess = "success"
	JobStatusError   = "error"
)

// JobRecord is a job as persisted by the local job store.
type JobRecord struct {
	ID           string `json:"id" yaml:"id"`
	Command      string `json:"command" yaml:"command"`
	Status       string `json:"status" yaml:"status"`
	Step         string `json:"step,omitempty" yaml:"step,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt" yaml:"createdAt"`
}
