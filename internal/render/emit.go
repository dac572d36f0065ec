package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EmitOptions controls how rendered files are written.
type EmitOptions struct {
	OutDir string // required
	Force  bool   // write into a non-empty directory
	DryRun bool   // plan only
}

// PlannedFile describes a file Emit writes or would write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Emit plans files in path order and, unless DryRun is set, writes them
// under OutDir. Every file is first written to a staging directory next to
// OutDir, so a failed write leaves OutDir as it was. A missing or empty
// OutDir is replaced by the staging directory in one rename; with Force the
// staged files are renamed over the existing tree one at a time.
func Emit(ctx context.Context, files Files, opts EmitOptions) ([]PlannedFile, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("render: OutDir is required")
	}
	abs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("render: resolve output directory: %w", err)
	}
	if err := validateOutputDirectory(abs, opts.Force); err != nil {
		return nil, err
	}

	rels := files.Paths()
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}
	if opts.DryRun {
		return planned, nil
	}

	stage, err := stageFiles(ctx, abs, files, rels)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(stage)
	if err := commitStage(stage, abs, rels); err != nil {
		return nil, err
	}
	return planned, nil
}

// stageFiles writes every file into a fresh directory beside outDir and
// returns its path. The directory is removed again on failure.
func stageFiles(ctx context.Context, outDir string, files Files, rels []string) (string, error) {
	parent := filepath.Dir(outDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("render: ensure directory %s: %w", parent, err)
	}
	stage, err := os.MkdirTemp(parent, ".swiftsdkgen-stage-*")
	if err != nil {
		return "", fmt.Errorf("render: create staging directory: %w", err)
	}
	if err := os.Chmod(stage, 0o755); err != nil {
		os.RemoveAll(stage)
		return "", fmt.Errorf("render: set staging permissions: %w", err)
	}
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			os.RemoveAll(stage)
			return "", err
		}
		if err := WriteFileAtomic(filepath.Join(stage, filepath.FromSlash(rel)), files[rel]); err != nil {
			os.RemoveAll(stage)
			return "", fmt.Errorf("render: write %s: %w", rel, err)
		}
	}
	return stage, nil
}

// commitStage moves the staged tree to outDir.
func commitStage(stage, outDir string, rels []string) error {
	entries, err := os.ReadDir(outDir)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("render: read output directory: %w", err)
	case len(entries) == 0:
		if err := os.Remove(outDir); err != nil {
			return fmt.Errorf("render: replace output directory: %w", err)
		}
	default:
		for _, rel := range rels {
			dst := filepath.Join(outDir, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return fmt.Errorf("render: ensure directory for %s: %w", rel, err)
			}
			if err := os.Rename(filepath.Join(stage, filepath.FromSlash(rel)), dst); err != nil {
				return fmt.Errorf("render: move %s into place: %w", rel, err)
			}
		}
		return nil
	}
	if err := os.Rename(stage, outDir); err != nil {
		return fmt.Errorf("render: move output directory into place: %w", err)
	}
	return nil
}

// validateOutputDirectory accepts a missing directory, an empty one, or any
// directory when force is set.
func validateOutputDirectory(absPath string, force bool) error {
	stat, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access output directory %q: %w", absPath, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("output path %q is not a directory", absPath)
	}
	if force {
		return nil
	}
	entries, err := os.ReadDir(absPath)
	if err != nil {
		return fmt.Errorf("cannot read output directory %q: %w", absPath, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("output directory %q is not empty (use --force to overwrite)", absPath)
	}
	return nil
}

// WriteFileAtomic writes content to a temp file next to fullPath and renames
// it into place.
func WriteFileAtomic(fullPath string, content []byte) error {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-swiftsdkgen-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if tmp != nil {
			tmp.Close()
		}
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	success = true
	return nil
}
