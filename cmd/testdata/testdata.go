package testdata

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"
	"github.com/spf13/afero"
)

type Command struct {
	outputDir string
}

func (*Command) Name() string     { return "testdata" }
func (*Command) Synopsis() string { return "Generate a fixture tree for scanning" }
func (*Command) Usage() string {
	return `testdata -out <directory>:
  Generate a directory tree with nested directories, duplicate contents,
  an empty file and a symlink, for trying out scan.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outputDir, "out", "", "output directory path (required)")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.outputDir == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	summary, err := Generate(afero.NewOsFs(), c.outputDir)
	if err != nil {
		log.Printf("Failed to generate test data: %v", err)
		return subcommands.ExitFailure
	}

	log.Printf("Generated %d directories, %d files and %d symlinks in %s",
		summary.Dirs, summary.Files, summary.Symlinks, c.outputDir)
	return subcommands.ExitSuccess
}

// Summary counts what Generate created. Dirs includes the output directory.
type Summary struct {
	Dirs     int
	Files    int
	Symlinks int
}

var dirs = []string{
	"docs",
	"docs/reports",
	"docs/reports/2024",
	"images",
	"images/thumbnails",
	"empty",
}

var contents = []struct {
	content string
	count   int
	ext     string
}{
	{"This is a test document\n", 3, ".txt"},
	{"Hello, World!\n", 2, ".txt"},
	{"package main\n\nfunc main() {}\n", 2, ".go"},
	{"", 1, ".empty"},
	{strings.Repeat("Large content repeated ", 1000), 1, ".log"},
}

// Generate writes the fixture tree under outputDir. The symlink is only
// created on filesystems that support links.
func Generate(fsys afero.Fs, outputDir string) (Summary, error) {
	var summary Summary

	if err := fsys.MkdirAll(outputDir, 0755); err != nil {
		return summary, fmt.Errorf("failed to create output directory: %v", err)
	}
	summary.Dirs++

	for _, dir := range dirs {
		path := filepath.Join(outputDir, dir)
		if err := fsys.MkdirAll(path, 0755); err != nil {
			return summary, fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		summary.Dirs++
	}

	fileCount := 1
	for _, c := range contents {
		for i := 0; i < c.count; i++ {
			// the last directory stays empty
			dir := dirs[fileCount%(len(dirs)-1)]
			filename := fmt.Sprintf("file%d%s", fileCount, c.ext)
			path := filepath.Join(outputDir, dir, filename)

			if err := afero.WriteFile(fsys, path, []byte(c.content), 0644); err != nil {
				return summary, fmt.Errorf("failed to create file %s: %v", filename, err)
			}
			summary.Files++
			fileCount++
		}
	}

	if linker, ok := fsys.(afero.Linker); ok {
		link := filepath.Join(outputDir, "docs", "link-to-images")
		if err := linker.SymlinkIfPossible(filepath.Join(outputDir, "images"), link); err != nil {
			log.Printf("Warning: symlink not created: %v", err)
		} else {
			summary.Symlinks++
		}
	}

	return summary, nil
}
