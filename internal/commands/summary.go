package commands

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/jobfolder/internal/services/filelock"
	"github.com/temirov/jobfolder/internal/types"
)

const (
	// SummaryFileName is the HTML summary written into the job output directory.
	SummaryFileName = "summary.html"

	anchorSeparator     = "<br/>\n"
	missingFolderFormat = "<h3><b>%s</b> does not exist.</h3>"

	errorListFolderFormat    = "listing %s: %w"
	errorWriteManifestFormat = "writing manifest %s: %w"
	errorWriteSummaryFormat  = "writing summary %s: %w"
)

// SummaryOptions configures GenerateSummary.
type SummaryOptions struct {
	Mode           types.ListingMode
	IgnorePatterns []string
	WriteManifest  bool
	Warn           func(message string)
}

// FolderExists reports whether path names an existing directory.
func FolderExists(path string) bool {
	info, statError := os.Stat(path)
	return statError == nil && info.IsDir()
}

// MissingFolderSummary is the summary text used when the artifact folder is absent.
func MissingFolderSummary(rootFolder string) string {
	return fmt.Sprintf(missingFolderFormat, html.EscapeString(rootFolder))
}

// RenderSummary formats a folder listing as anchor lines joined by line breaks.
// A non-empty manifestPath is linked first.
func RenderSummary(listing FolderListing, manifestPath string) string {
	linkBase := NewLinkBase(listing.Root)
	anchors := make([]string, 0, len(listing.Entries)+1)
	if manifestPath != "" {
		anchors = append(anchors, linkBase.Anchor(types.EntryKindFile, manifestPath))
	}
	for _, entry := range listing.Entries {
		anchors = append(anchors, linkBase.Anchor(entry.Kind, entry.Path))
	}
	return strings.Join(anchors, anchorSeparator)
}

// GenerateSummary writes summary.html for rootFolder into outputDirectory and,
// when requested, MANIFEST.txt into rootFolder itself. A missing rootFolder is
// not an error: the summary then holds a fixed notice and no manifest is written.
// The returned SupportDirectoryPath is always empty.
func GenerateSummary(rootFolder string, outputDirectory string, options SummaryOptions) (types.SummaryResult, error) {
	result := types.SummaryResult{
		RootFolder:  rootFolder,
		SummaryPath: filepath.Join(outputDirectory, SummaryFileName),
	}

	summaryText := MissingFolderSummary(rootFolder)
	if FolderExists(rootFolder) {
		listing, listError := ListFolder(rootFolder, FolderListingOptions{
			Mode:            options.Mode,
			IgnorePatterns:  options.IgnorePatterns,
			ExcludeManifest: options.WriteManifest,
			Warn:            options.Warn,
		})
		if listError != nil {
			return types.SummaryResult{}, fmt.Errorf(errorListFolderFormat, rootFolder, listError)
		}

		manifestPath := ""
		if options.WriteManifest {
			manifestPath = filepath.Join(listing.Root, ManifestFileName)
			if writeError := filelock.LockAndWrite(manifestPath, []byte(listing.Manifest())); writeError != nil {
				return types.SummaryResult{}, fmt.Errorf(errorWriteManifestFormat, manifestPath, writeError)
			}
			result.ManifestPath = manifestPath
		}

		summaryText = RenderSummary(listing, manifestPath)
		result.RootFolder = listing.Root
		result.EntryCount = len(listing.Entries)
		result.FolderExists = true
	}

	if writeError := filelock.AtomicWrite(result.SummaryPath, []byte(summaryText)); writeError != nil {
		return types.SummaryResult{}, fmt.Errorf(errorWriteSummaryFormat, result.SummaryPath, writeError)
	}
	return result, nil
}
