// Package commands contains the core logic behind each jobfolder command:
// walking an artifact folder and rendering its summary and manifest.
package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/temirov/jobfolder/internal/types"
	"github.com/temirov/jobfolder/internal/utils"
)

const (
	// ManifestIndentToken is repeated once per depth level in manifest lines.
	ManifestIndentToken = "|--"
	// ManifestFileName is the manifest written inside the artifact folder.
	ManifestFileName = "MANIFEST.txt"
	// LandingPageFileName marks nested pages linked in landing mode.
	LandingPageFileName = "index.html"

	directorySuffix = "/"

	warningReadDirectoryFormat = "Warning: skipping subdirectory %s due to error: %v\n"
	warningStatPathFormat      = "Warning: unable to stat %s: %v\n"
	warningCycleFormat         = "Warning: not descending into %s: loops back to %s\n"

	errorReadRootFormat = "reading directory %s: %w"
	errorRootNotDir     = "%s is not a directory"
)

// FolderListingOptions configures a folder walk.
type FolderListingOptions struct {
	Mode            types.ListingMode
	IgnorePatterns  []string
	ExcludeManifest bool
	Warn            func(message string)
}

// FolderListing is the result of walking an artifact folder.
type FolderListing struct {
	Root          string
	Entries       []types.DirectoryEntry
	ManifestLines []string
	Directories   int
	Files         int
}

// Manifest returns the manifest lines joined by newlines.
func (listing FolderListing) Manifest() string {
	return strings.Join(listing.ManifestLines, "\n")
}

type folderWalker struct {
	root     string
	options  FolderListingOptions
	visited  map[string]string
	listing  *FolderListing
	warnings func(string)
}

type classifiedEntry struct {
	name string
	path string
}

// ListFolder walks rootDirectoryPath depth-first and returns the index entries
// selected by the listing mode together with the manifest of the whole tree.
//
// Entries within a directory are visited in lexical name order. Index entries of
// a directory list its subdirectories first, each followed by its own entries,
// then its files. Manifest lines list each directory, then its files one level
// deeper, then its subdirectory blocks.
func ListFolder(rootDirectoryPath string, options FolderListingOptions) (FolderListing, error) {
	absoluteRoot, absoluteError := filepath.Abs(rootDirectoryPath)
	if absoluteError != nil {
		return FolderListing{}, fmt.Errorf("getting absolute path for %s: %w", rootDirectoryPath, absoluteError)
	}
	rootInfo, statError := os.Stat(absoluteRoot)
	if statError != nil {
		return FolderListing{}, statError
	}
	if !rootInfo.IsDir() {
		return FolderListing{}, fmt.Errorf(errorRootNotDir, absoluteRoot)
	}
	if options.Mode == "" {
		options.Mode = types.ListingModeFull
	}
	warn := options.Warn
	if warn == nil {
		warn = func(string) {}
	}

	listing := FolderListing{Root: absoluteRoot}
	walker := folderWalker{
		root:     absoluteRoot,
		options:  options,
		visited:  make(map[string]string),
		listing:  &listing,
		warnings: warn,
	}
	if walkError := walker.walkDirectory(absoluteRoot, 0); walkError != nil {
		return FolderListing{}, fmt.Errorf(errorReadRootFormat, absoluteRoot, walkError)
	}
	return listing, nil
}

// walkDirectory lists one directory and descends into its subdirectories. The
// header line is recorded before reading so an unreadable directory still
// appears in the manifest next to its index entry.
func (walker *folderWalker) walkDirectory(directoryPath string, depth int) error {
	walker.listing.Directories++
	walker.listing.ManifestLines = append(walker.listing.ManifestLines, manifestLine(filepath.Base(directoryPath)+directorySuffix, depth))

	// visited holds only the directories on the current descent path.
	if realPath, evalError := filepath.EvalSymlinks(directoryPath); evalError == nil {
		walker.visited[realPath] = directoryPath
		defer delete(walker.visited, realPath)
	}

	directoryEntries, readError := os.ReadDir(directoryPath)
	if readError != nil {
		return readError
	}

	var files []classifiedEntry
	var directories []classifiedEntry
	for _, directoryEntry := range directoryEntries {
		name := directoryEntry.Name()
		childPath := filepath.Join(directoryPath, name)
		if depth == 0 && walker.options.ExcludeManifest && name == ManifestFileName {
			continue
		}
		if utils.ShouldIgnoreByPath(utils.RelativePathOrSelf(childPath, walker.root), walker.options.IgnorePatterns) {
			continue
		}
		if walker.isDirectory(directoryEntry, childPath) {
			directories = append(directories, classifiedEntry{name: name, path: childPath})
		} else {
			files = append(files, classifiedEntry{name: name, path: childPath})
		}
	}
	sort.Slice(files, func(left, right int) bool { return files[left].name < files[right].name })
	sort.Slice(directories, func(left, right int) bool { return directories[left].name < directories[right].name })

	for _, file := range files {
		walker.listing.ManifestLines = append(walker.listing.ManifestLines, manifestLine(file.name, depth+1))
	}

	for _, directory := range directories {
		if walker.includes(types.EntryKindFolder, directory.name, depth+1) {
			walker.appendEntry(types.EntryKindFolder, directory.path)
		}
		if realPath, evalError := filepath.EvalSymlinks(directory.path); evalError == nil {
			if firstPath, seen := walker.visited[realPath]; seen {
				walker.warnings(fmt.Sprintf(warningCycleFormat, directory.path, firstPath))
				walker.listing.Directories++
				walker.listing.ManifestLines = append(walker.listing.ManifestLines, manifestLine(directory.name+directorySuffix, depth+1))
				continue
			}
		}
		if walkError := walker.walkDirectory(directory.path, depth+1); walkError != nil {
			walker.warnings(fmt.Sprintf(warningReadDirectoryFormat, directory.path, walkError))
		}
	}

	for _, file := range files {
		walker.listing.Files++
		if walker.includes(types.EntryKindFile, file.name, depth+1) {
			walker.appendEntry(types.EntryKindFile, file.path)
		}
	}
	return nil
}

// isDirectory reports whether the entry is a directory, following symbolic links.
// A dangling link is listed as a file.
func (walker *folderWalker) isDirectory(directoryEntry os.DirEntry, childPath string) bool {
	if directoryEntry.IsDir() {
		return true
	}
	if directoryEntry.Type()&os.ModeSymlink == 0 {
		return false
	}
	targetInfo, statError := os.Stat(childPath)
	if statError != nil {
		walker.warnings(fmt.Sprintf(warningStatPathFormat, childPath, statError))
		return false
	}
	return targetInfo.IsDir()
}

// includes applies the listing mode to an entry found entryDepth levels below the root.
func (walker *folderWalker) includes(kind string, name string, entryDepth int) bool {
	switch walker.options.Mode {
	case types.ListingModeLanding:
		if entryDepth == 1 {
			return true
		}
		return kind == types.EntryKindFile && name == LandingPageFileName
	default:
		return true
	}
}

func (walker *folderWalker) appendEntry(kind string, path string) {
	walker.listing.Entries = append(walker.listing.Entries, types.DirectoryEntry{Kind: kind, Path: path})
}

func manifestLine(name string, depth int) string {
	return strings.Repeat(ManifestIndentToken, depth) + name
}
