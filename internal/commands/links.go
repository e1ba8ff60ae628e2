package commands

import (
	"fmt"
	"html"
	"path/filepath"
)

const (
	anchorFormat     = `<a href="%s" type="%s" target="_blank">%s</a>`
	hrefPrefix       = "./"
	currentDirectory = "."
)

// LinkBase turns absolute paths below an artifact folder into summary links.
//
// Visible names are relative to the folder's parent, so they start with the
// folder name. Links are relative to the parent's parent, the directory the
// server publishes artifact folders from, so they start with the artifact
// directory that holds the folder.
type LinkBase struct {
	nameBase string
	linkBase string
}

// NewLinkBase derives the name and link bases of the artifact folder rootFolder.
func NewLinkBase(rootFolder string) LinkBase {
	absoluteRoot, absoluteError := filepath.Abs(rootFolder)
	if absoluteError != nil {
		absoluteRoot = filepath.Clean(rootFolder)
	}
	parentDirectory := filepath.Dir(absoluteRoot)
	return LinkBase{
		nameBase: parentDirectory,
		linkBase: filepath.Dir(parentDirectory),
	}
}

// DisplayName returns path relative to the folder's parent, slash-separated.
func (base LinkBase) DisplayName(path string) string {
	return relativeSlashPath(base.nameBase, path)
}

// Href returns the link to path relative to the folder's grandparent.
func (base LinkBase) Href(path string) string {
	relativePath := relativeSlashPath(base.linkBase, path)
	if relativePath == currentDirectory {
		return currentDirectory
	}
	return hrefPrefix + relativePath
}

// Anchor renders one summary line linking to path.
func (base LinkBase) Anchor(kind string, path string) string {
	return fmt.Sprintf(anchorFormat,
		html.EscapeString(base.Href(path)),
		html.EscapeString(kind),
		html.EscapeString(base.DisplayName(path)),
	)
}

func relativeSlashPath(basePath string, path string) string {
	relativePath, relativeError := filepath.Rel(basePath, filepath.Clean(path))
	if relativeError != nil {
		return filepath.ToSlash(filepath.Clean(path))
	}
	return filepath.ToSlash(relativePath)
}
