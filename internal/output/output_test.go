package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/temirov/jobfolder/internal/output"
	"github.com/temirov/jobfolder/internal/plugin"
	"github.com/temirov/jobfolder/internal/types"
)

var sampleSummaries = []types.SummaryResult{
	{
		RootFolder:   "/data/7/test_data",
		SummaryPath:  "/jobs/a/summary.html",
		ManifestPath: "/data/7/test_data/MANIFEST.txt",
		EntryCount:   7,
		FolderExists: true,
	},
	{
		RootFolder:  "/data/8/absent",
		SummaryPath: "/jobs/b/summary.html",
	},
}

const expectedRawSummaries = "[ok] /data/7/test_data -> /jobs/a/summary.html\n" +
	"    entries 7\n" +
	"    manifest /data/7/test_data/MANIFEST.txt\n" +
	"[missing] /data/8/absent -> /jobs/b/summary.html\n"

func TestRenderSummaryResultsRaw(t *testing.T) {
	var buffer bytes.Buffer
	if err := output.RenderSummaryResults(&buffer, types.FormatRaw, sampleSummaries); err != nil {
		t.Fatalf("RenderSummaryResults error: %v", err)
	}
	if buffer.String() != expectedRawSummaries {
		t.Fatalf("unexpected raw output:\n%s", buffer.String())
	}
}

func TestRenderSummaryResultsStructured(t *testing.T) {
	var jsonBuffer bytes.Buffer
	if err := output.RenderSummaryResults(&jsonBuffer, types.FormatJSON, sampleSummaries); err != nil {
		t.Fatalf("json render error: %v", err)
	}
	var decodedJSON []types.SummaryResult
	if err := json.Unmarshal(jsonBuffer.Bytes(), &decodedJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decodedJSON) != 2 || decodedJSON[0] != sampleSummaries[0] {
		t.Fatalf("unexpected json round trip %+v", decodedJSON)
	}

	var yamlBuffer bytes.Buffer
	if err := output.RenderSummaryResults(&yamlBuffer, types.FormatYAML, sampleSummaries); err != nil {
		t.Fatalf("yaml render error: %v", err)
	}
	var decodedYAML []map[string]any
	if err := yaml.Unmarshal(yamlBuffer.Bytes(), &decodedYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(decodedYAML) != 2 || decodedYAML[0]["summaryPath"] != "/jobs/a/summary.html" {
		t.Fatalf("unexpected yaml output:\n%s", yamlBuffer.String())
	}
	if _, hasManifest := decodedYAML[1]["manifestPath"]; hasManifest {
		t.Fatalf("empty manifest path should be omitted:\n%s", yamlBuffer.String())
	}
}

func TestRenderValidationResultsRaw(t *testing.T) {
	results := []types.ValidationResult{
		{
			JobID:   "job-1",
			Success: true,
			Artifacts: []types.ArtifactInfo{{
				ID:   3,
				Type: types.ArtifactTypeJobOutputFolder,
				Files: []types.ArtifactFile{
					{Path: "/data/run", Type: types.FilepathTypeDirectory},
					{Path: "/jobs/job-1/summary.html", Type: types.FilepathTypeHTMLSummary},
				},
			}},
		},
		{JobID: "job-2", ErrorMessage: "/data/gone does not exist or is not a folder"},
	}

	var buffer bytes.Buffer
	if err := output.RenderValidationResults(&buffer, types.FormatRaw, results); err != nil {
		t.Fatalf("RenderValidationResults error: %v", err)
	}
	expected := "[ok] job job-1\n" +
		"[artifact] 3 (job-output-folder)\n" +
		"    directory /data/run\n" +
		"    html_summary /jobs/job-1/summary.html\n" +
		"[failed] job job-2\n" +
		"    error: /data/gone does not exist or is not a folder\n"
	if buffer.String() != expected {
		t.Fatalf("unexpected raw output:\n%s", buffer.String())
	}
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	if output.IsSupportedFormat("xml") {
		t.Fatalf("xml should not be supported")
	}
	var buffer bytes.Buffer
	err := output.RenderJobResult(&buffer, "xml", types.JobResult{JobID: "job"})
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestRenderRegistrationRaw(t *testing.T) {
	var buffer bytes.Buffer
	if err := output.RenderRegistration(&buffer, types.FormatRaw, plugin.Describe()); err != nil {
		t.Fatalf("RenderRegistration error: %v", err)
	}
	expected := "qtp-job-output-folder 2021.08\n" +
		"    job-output-folder artifact types plugin\n" +
		"[command] Validate\n" +
		"[command] Generate HTML summary\n" +
		"[type] job-output-folder (Job Output Folder)\n" +
		"    directory required\n"
	if buffer.String() != expected {
		t.Fatalf("unexpected raw output:\n%s", buffer.String())
	}
}

func TestRenderJobRecordRaw(t *testing.T) {
	testCases := []struct {
		name     string
		record   types.JobRecord
		expected string
	}{
		{
			name: "success",
			record: types.JobRecord{
				ID:        "job-1",
				Command:   "Validate",
				Status:    types.JobStatusSuccess,
				Step:      "Step 2: Generating artifact",
				CreatedAt: "2021-08-01T10:00:00Z",
			},
			expected: "[ok] job job-1\n" +
				"    command Validate\n" +
				"    step Step 2: Generating artifact\n" +
				"    created 2021-08-01T10:00:00Z\n",
		},
		{
			name: "error",
			record: types.JobRecord{
				ID:           "job-2",
				Command:      "Generate HTML summary",
				Status:       types.JobStatusError,
				ErrorMessage: "artifact 9: artifact not found",
				CreatedAt:    "2021-08-01T10:05:00Z",
			},
			expected: "[failed] job job-2\n" +
				"    command Generate HTML summary\n" +
				"    created 2021-08-01T10:05:00Z\n" +
				"    error: artifact 9: artifact not found\n",
		},
		{
			name:     "running",
			record:   types.JobRecord{ID: "job-3", Status: types.JobStatusRunning},
			expected: "[running] job job-3\n",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var buffer bytes.Buffer
			if err := output.RenderJobRecord(&buffer, types.FormatRaw, testCase.record); err != nil {
				t.Fatalf("RenderJobRecord error: %v", err)
			}
			if buffer.String() != testCase.expected {
				t.Fatalf("unexpected raw output:\n%s", buffer.String())
			}
		})
	}
}

func TestRenderArtifactFiles(t *testing.T) {
	files := []types.ArtifactFile{
		{Path: "/data/run", Type: types.FilepathTypeDirectory},
		{Path: "/jobs/job-1/summary.html", Type: types.FilepathTypeHTMLSummary},
	}

	var raw bytes.Buffer
	if err := output.RenderArtifactFiles(&raw, types.FormatRaw, files); err != nil {
		t.Fatalf("RenderArtifactFiles error: %v", err)
	}
	expected := "    directory /data/run\n" +
		"    html_summary /jobs/job-1/summary.html\n"
	if raw.String() != expected {
		t.Fatalf("unexpected raw output:\n%s", raw.String())
	}

	var structured bytes.Buffer
	if err := output.RenderArtifactFiles(&structured, types.FormatYAML, files); err != nil {
		t.Fatalf("RenderArtifactFiles error: %v", err)
	}
	var decoded []types.ArtifactFile
	if err := yaml.Unmarshal(structured.Bytes(), &decoded); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(decoded) != 2 || decoded[1] != files[1] {
		t.Fatalf("unexpected yaml output:\n%s", structured.String())
	}
}
