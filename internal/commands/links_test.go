package commands

import (
	"path/filepath"
	"testing"
)

func TestLinkBaseTrimsAncestors(t *testing.T) {
	rootFolder := filepath.FromSlash("/srv/qiita/job-output-folder/12/test_data")
	linkBase := NewLinkBase(rootFolder)

	testCases := []struct {
		name         string
		path         string
		expectName   string
		expectHref   string
		expectAnchor string
		kind         string
	}{
		{
			name:         "root_level_file",
			path:         filepath.Join(rootFolder, "file_1"),
			kind:         "file",
			expectName:   "test_data/file_1",
			expectHref:   "./12/test_data/file_1",
			expectAnchor: `<a href="./12/test_data/file_1" type="file" target="_blank">test_data/file_1</a>`,
		},
		{
			name:         "nested_folder",
			path:         filepath.Join(rootFolder, "folder_a", "folder_b"),
			kind:         "folder",
			expectName:   "test_data/folder_a/folder_b",
			expectHref:   "./12/test_data/folder_a/folder_b",
			expectAnchor: `<a href="./12/test_data/folder_a/folder_b" type="folder" target="_blank">test_data/folder_a/folder_b</a>`,
		},
		{
			name:         "markup_is_escaped",
			path:         filepath.Join(rootFolder, `a<b>&"c"`),
			kind:         "file",
			expectName:   `test_data/a<b>&"c"`,
			expectHref:   `./12/test_data/a<b>&"c"`,
			expectAnchor: `<a href="./12/test_data/a&lt;b&gt;&amp;&#34;c&#34;" type="file" target="_blank">test_data/a&lt;b&gt;&amp;&#34;c&#34;</a>`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := linkBase.DisplayName(testCase.path); got != testCase.expectName {
				t.Fatalf("DisplayName: expected %q, got %q", testCase.expectName, got)
			}
			if got := linkBase.Href(testCase.path); got != testCase.expectHref {
				t.Fatalf("Href: expected %q, got %q", testCase.expectHref, got)
			}
			if got := linkBase.Anchor(testCase.kind, testCase.path); got != testCase.expectAnchor {
				t.Fatalf("Anchor: expected %q, got %q", testCase.expectAnchor, got)
			}
		})
	}
}

func TestLinkBaseIgnoresTrailingSeparator(t *testing.T) {
	withSeparator := NewLinkBase(filepath.FromSlash("/data/3/run/"))
	withoutSeparator := NewLinkBase(filepath.FromSlash("/data/3/run"))
	if withSeparator != withoutSeparator {
		t.Fatalf("expected equal bases, got %+v and %+v", withSeparator, withoutSeparator)
	}
	if got := withSeparator.Href(filepath.FromSlash("/data/3/run/x")); got != "./3/run/x" {
		t.Fatalf("unexpected href %q", got)
	}
}
