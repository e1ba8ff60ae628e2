package plugin_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/jobfolder/internal/commands"
	"github.com/temirov/jobfolder/internal/plugin"
	"github.com/temirov/jobfolder/internal/types"
)

type recordingTracker struct {
	steps     []string
	folders   map[string]string
	summaries map[string]types.HTMLSummary
	attachErr error
}

func newRecordingTracker() *recordingTracker {
	return &recordingTracker{
		folders:   make(map[string]string),
		summaries: make(map[string]types.HTMLSummary),
	}
}

func (tracker *recordingTracker) UpdateJobStep(_ context.Context, jobID string, step string) error {
	tracker.steps = append(tracker.steps, jobID+":"+step)
	return nil
}

func (tracker *recordingTracker) ArtifactFolder(_ context.Context, artifactID string) (string, error) {
	folder, found := tracker.folders[artifactID]
	if !found {
		return "", errors.New("unknown artifact")
	}
	return folder, nil
}

func (tracker *recordingTracker) AddHTMLSummary(_ context.Context, artifactID string, summary types.HTMLSummary) error {
	if tracker.attachErr != nil {
		return tracker.attachErr
	}
	tracker.summaries[artifactID] = summary
	return nil
}

func makeFolder(t *testing.T) string {
	t.Helper()
	folder := filepath.Join(t.TempDir(), "3", "test_data")
	if err := os.MkdirAll(filepath.Join(folder, "folder_a"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, "file_1"), []byte("1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return folder
}

func TestValidateCreatesArtifact(t *testing.T) {
	folder := makeFolder(t)
	outputDirectory := t.TempDir()
	tracker := newRecordingTracker()

	result, err := plugin.New(tracker, commands.SummaryOptions{}, nil).
		Validate(context.Background(), "job-1", plugin.NewValidateRequest(folder), outputDirectory)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}

	if !result.Success || result.ErrorMessage != "" || result.Folder != folder {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Artifacts) != 1 {
		t.Fatalf("expected one artifact, got %+v", result.Artifacts)
	}
	artifact := result.Artifacts[0]
	expectedFiles := []types.ArtifactFile{
		{Path: folder, Type: types.FilepathTypeDirectory},
		{Path: filepath.Join(outputDirectory, commands.SummaryFileName), Type: types.FilepathTypeHTMLSummary},
	}
	if artifact.Type != types.ArtifactTypeJobOutputFolder || len(artifact.Files) != len(expectedFiles) {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
	for index := range expectedFiles {
		if artifact.Files[index] != expectedFiles[index] {
			t.Fatalf("file %d: expected %+v, got %+v", index, expectedFiles[index], artifact.Files[index])
		}
	}
	if len(tracker.steps) != 2 || tracker.steps[0] != "job-1:Step 1: Validating directory" || tracker.steps[1] != "job-1:Step 2: Generating artifact" {
		t.Fatalf("unexpected steps %v", tracker.steps)
	}
	if _, err := os.Stat(expectedFiles[1].Path); err != nil {
		t.Fatalf("summary not written: %v", err)
	}
}

func TestValidateRejectsMissingFolder(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "absent")
	outputDirectory := t.TempDir()
	tracker := newRecordingTracker()

	result, err := plugin.New(tracker, commands.SummaryOptions{}, nil).
		Validate(context.Background(), "job-2", plugin.NewValidateRequest(folder), outputDirectory)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if result.Success || result.Artifacts != nil {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.ErrorMessage != folder+" does not exist or is not a folder" {
		t.Fatalf("unexpected error message %q", result.ErrorMessage)
	}
	if len(tracker.steps) != 1 {
		t.Fatalf("expected only the validation step, got %v", tracker.steps)
	}
	if _, err := os.Stat(filepath.Join(outputDirectory, commands.SummaryFileName)); !os.IsNotExist(err) {
		t.Fatalf("no summary should be written for a rejected folder")
	}
}

func TestValidateRequestFolder(t *testing.T) {
	testCases := []struct {
		name        string
		files       string
		expectPath  string
		expectError bool
	}{
		{name: "first_directory", files: `{"directory": ["/a", "/b"]}`, expectPath: "/a"},
		{name: "no_directory", files: `{"html_summary": ["/a"]}`, expectError: true},
		{name: "invalid_json", files: `directory`, expectError: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			folder, err := plugin.ValidateRequest{Files: testCase.files}.Folder()
			if testCase.expectError {
				if err == nil {
					t.Fatalf("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Folder error: %v", err)
			}
			if folder != testCase.expectPath {
				t.Fatalf("expected %s, got %s", testCase.expectPath, folder)
			}
		})
	}
}

func TestGenerateHTMLSummaryAttachesSummary(t *testing.T) {
	folder := makeFolder(t)
	outputDirectory := t.TempDir()
	tracker := newRecordingTracker()
	tracker.folders["3"] = folder

	result, err := plugin.New(tracker, commands.SummaryOptions{}, nil).
		GenerateHTMLSummary(context.Background(), "job-3", "3", outputDirectory)
	if err != nil {
		t.Fatalf("GenerateHTMLSummary error: %v", err)
	}
	if !result.Success || result.ErrorMessage != "" {
		t.Fatalf("unexpected result %+v", result)
	}

	payload, err := json.Marshal(tracker.summaries["3"])
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	directoryValue, hasDirectory := decoded["dir"]
	if decoded["html"] != filepath.Join(outputDirectory, commands.SummaryFileName) || !hasDirectory || directoryValue != nil {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestGenerateHTMLSummaryReportsAttachFailure(t *testing.T) {
	tracker := newRecordingTracker()
	tracker.folders["3"] = makeFolder(t)
	tracker.attachErr = errors.New("server unavailable")

	result, err := plugin.New(tracker, commands.SummaryOptions{}, nil).
		GenerateHTMLSummary(context.Background(), "job-4", "3", t.TempDir())
	if err != nil {
		t.Fatalf("GenerateHTMLSummary error: %v", err)
	}
	if result.Success || result.ErrorMessage != "server unavailable" {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := plugin.New(tracker, commands.SummaryOptions{}, nil).
		GenerateHTMLSummary(context.Background(), "job-5", "99", t.TempDir()); err == nil {
		t.Fatalf("expected an error for an unknown artifact")
	}
}
