package commands

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed all:templates
var templateFS embed.FS

const starterTemplate = "starter"

// dotfiles are stored without their leading dot so embed keeps them.
var dotfiles = map[string]string{"gitignore": ".gitignore"}

// scaffoldFile is one file of a project template.
type scaffoldFile struct {
	source string // path inside templateFS
	target string // path on disk
	exists bool
}

func (f scaffoldFile) rel(dir string) string {
	rel, err := filepath.Rel(dir, f.target)
	if err != nil {
		return f.target
	}
	return filepath.ToSlash(rel)
}

// planScaffold lists the files of template that would be written under dir.
func planScaffold(template, dir string) ([]scaffoldFile, error) {
	root := path.Join("templates", template)
	var plan []scaffoldFile
	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel := strings.TrimPrefix(p, root+"/")
		if renamed, ok := dotfiles[path.Base(rel)]; ok {
			rel = path.Join(path.Dir(rel), renamed)
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))
		_, statErr := os.Stat(target)
		plan = append(plan, scaffoldFile{source: p, target: target, exists: statErr == nil})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", template, err)
	}
	return plan, nil
}

// writeScaffold writes plan to disk. Existing files are kept unless force is
// set; the kept ones are returned.
func writeScaffold(plan []scaffoldFile, force bool) (kept []scaffoldFile, err error) {
	for _, f := range plan {
		if f.exists && !force {
			kept = append(kept, f)
			continue
		}
		content, err := templateFS.ReadFile(f.source)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(f.target), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(f.target), err)
		}
		if err := os.WriteFile(f.target, content, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.target, err)
		}
	}
	return kept, nil
}
