// Package output renders command results as raw text, JSON, or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/temirov/jobfolder/internal/plugin"
	"github.com/temirov/jobfolder/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "
	yamlIndent   = 2

	summaryLineFormat   = "%s %s -> %s\n"
	detailLineFormat    = "    %s %s\n"
	validatedLabel      = "[ok]"
	rejectedLabel       = "[missing]"
	failedLabel         = "[failed]"
	artifactLineFormat  = "%s %d (%s)\n"
	artifactLabel       = "[artifact]"
	jobLineFormat       = "%s job %s\n"
	errorMessageFormat  = "    error: %s\n"
	manifestLabel       = "manifest"
	entriesLabel        = "entries"
	invalidFormatFormat = "unsupported output format %q"
	pluginLineFormat    = "%s %s\n"
	aboutLineFormat     = "    %s\n"
	commandLabel        = "[command]"
	typeLabel           = "[type]"
	typeLineFormat      = "%s %s (%s)\n"
	requiredLabel       = "required"
	optionalLabel       = "optional"
	commandFieldLabel   = "command"
	stepFieldLabel      = "step"
	createdFieldLabel   = "created"
	runningLabel        = "[running]"
)

// IsSupportedFormat reports whether the provided format is recognized.
func IsSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatYAML:
		return true
	default:
		return false
	}
}

// palette colors raw output when it goes to a terminal.
type palette struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
}

func newPalette(writer io.Writer) palette {
	colors := palette{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
	}
	enabled := false
	if file, isFile := writer.(*os.File); isFile {
		enabled = isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
	}
	for _, entry := range []*color.Color{colors.success, colors.fail, colors.warn, colors.label} {
		if enabled {
			entry.EnableColor()
		} else {
			entry.DisableColor()
		}
	}
	return colors
}

// renderStructured writes value as indented JSON or YAML.
func renderStructured(writer io.Writer, format string, value any) error {
	switch format {
	case types.FormatJSON:
		encoded, err := json.MarshalIndent(value, indentPrefix, indentSpacer)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(writer, string(encoded))
		return err
	case types.FormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndent)
		if err := encoder.Encode(value); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return encoder.Close()
	default:
		return fmt.Errorf(invalidFormatFormat, format)
	}
}

// RenderSummaryResults writes the outcome of rendered summaries.
func RenderSummaryResults(writer io.Writer, format string, results []types.SummaryResult) error {
	if format != types.FormatRaw {
		return renderStructured(writer, format, results)
	}
	colors := newPalette(writer)
	for _, result := range results {
		label := colors.success.Sprint(validatedLabel)
		if !result.FolderExists {
			label = colors.warn.Sprint(rejectedLabel)
		}
		if _, err := fmt.Fprintf(writer, summaryLineFormat, label, result.RootFolder, result.SummaryPath); err != nil {
			return err
		}
		if result.FolderExists {
			if _, err := fmt.Fprintf(writer, detailLineFormat, colors.label.Sprint(entriesLabel), fmt.Sprint(result.EntryCount)); err != nil {
				return err
			}
		}
		if result.ManifestPath != "" {
			if _, err := fmt.Fprintf(writer, detailLineFormat, colors.label.Sprint(manifestLabel), result.ManifestPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderValidationResults writes the outcome of validation jobs.
func RenderValidationResults(writer io.Writer, format string, results []types.ValidationResult) error {
	if format != types.FormatRaw {
		return renderStructured(writer, format, results)
	}
	colors := newPalette(writer)
	for _, result := range results {
		label := colors.success.Sprint(validatedLabel)
		if !result.Success {
			label = colors.fail.Sprint(failedLabel)
		}
		if _, err := fmt.Fprintf(writer, jobLineFormat, label, result.JobID); err != nil {
			return err
		}
		if result.ErrorMessage != "" {
			if _, err := fmt.Fprintf(writer, errorMessageFormat, result.ErrorMessage); err != nil {
				return err
			}
		}
		if err := writeArtifacts(writer, colors, result.Artifacts); err != nil {
			return err
		}
	}
	return nil
}

// RenderJobResult writes the outcome of a job that creates no artifacts.
func RenderJobResult(writer io.Writer, format string, result types.JobResult) error {
	if format != types.FormatRaw {
		return renderStructured(writer, format, result)
	}
	colors := newPalette(writer)
	label := colors.success.Sprint(validatedLabel)
	if !result.Success {
		label = colors.fail.Sprint(failedLabel)
	}
	if _, err := fmt.Fprintf(writer, jobLineFormat, label, result.JobID); err != nil {
		return err
	}
	if result.ErrorMessage != "" {
		_, err := fmt.Fprintf(writer, errorMessageFormat, result.ErrorMessage)
		return err
	}
	return nil
}

// RenderJobRecord writes a stored job with its status, last step and creation time.
func RenderJobRecord(writer io.Writer, format string, record types.JobRecord) error {
	if format != types.FormatRaw {
		return renderStructured(writer, format, record)
	}
	colors := newPalette(writer)
	var label string
	switch record.Status {
	case types.JobStatusSuccess:
		label = colors.success.Sprint(validatedLabel)
	case types.JobStatusError:
		label = colors.fail.Sprint(failedLabel)
	default:
		label = colors.warn.Sprint(runningLabel)
	}
	if _, err := fmt.Fprintf(writer, jobLineFormat, label, record.ID); err != nil {
		return err
	}
	details := [][2]string{
		{commandFieldLabel, record.Command},
		{stepFieldLabel, record.Step},
		{createdFieldLabel, record.CreatedAt},
	}
	for _, detail := range details {
		if detail[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(writer, detailLineFormat, colors.label.Sprint(detail[0]), detail[1]); err != nil {
			return err
		}
	}
	if record.ErrorMessage != "" {
		_, err := fmt.Fprintf(writer, errorMessageFormat, record.ErrorMessage)
		return err
	}
	return nil
}

// RenderArtifactFiles writes the files of one artifact in registration order.
func RenderArtifactFiles(writer io.Writer, format string, files []types.ArtifactFile) error {
	if format != types.FormatRaw {
		return renderStructured(writer, format, files)
	}
	colors := newPalette(writer)
	for _, file := range files {
		if _, err := fmt.Fprintf(writer, detailLineFormat, colors.label.Sprint(file.Type), file.Path); err != nil {
			return err
		}
	}
	return nil
}

// RenderArtifacts writes stored artifacts and their files.
func RenderArtifacts(writer io.Writer, format string, artifacts []types.ArtifactInfo) error {
	if format != types.FormatRaw {
		return renderStructured(writer, format, artifacts)
	}
	return writeArtifacts(writer, newPalette(writer), artifacts)
}

func writeArtifacts(writer io.Writer, colors palette, artifacts []types.ArtifactInfo) error {
	for _, artifact := range artifacts {
		if _, err := fmt.Fprintf(writer, artifactLineFormat, colors.label.Sprint(artifactLabel), artifact.ID, artifact.Type); err != nil {
			return err
		}
		for _, file := range artifact.Files {
			if _, err := fmt.Fprintf(writer, detailLineFormat, colors.label.Sprint(file.Type), file.Path); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderRegistration writes the plugin name, commands and artifact types.
func RenderRegistration(writer io.Writer, format string, registration plugin.Registration) error {
	if format != types.FormatRaw {
		return renderStructured(writer, format, registration)
	}
	colors := newPalette(writer)
	if _, err := fmt.Fprintf(writer, pluginLineFormat, colors.success.Sprint(registration.Name), registration.Version); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, aboutLineFormat, registration.Description); err != nil {
		return err
	}
	for _, command := range registration.Commands {
		if _, err := fmt.Fprintf(writer, pluginLineFormat, colors.label.Sprint(commandLabel), command); err != nil {
			return err
		}
	}
	for _, artifactType := range registration.ArtifactTypes {
		if _, err := fmt.Fprintf(writer, typeLineFormat, colors.label.Sprint(typeLabel), artifactType.Name, artifactType.Description); err != nil {
			return err
		}
		for _, filepathType := range artifactType.FilepathTypes {
			requirement := optionalLabel
			if filepathType.Required {
				requirement = requiredLabel
			}
			if _, err := fmt.Fprintf(writer, detailLineFormat, filepathType.Name, requirement); err != nil {
				return err
			}
		}
	}
	return nil
}
