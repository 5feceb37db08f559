package core

import (
	"os"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"
)

// DiscoverFiles lists every regular file under root as sorted root-relative paths.
// Directories in cfg.Ignore are skipped, as are the session log and, when enabled,
// files matched by the root .gitignore.
func DiscoverFiles(root string, cfg Config) ([]string, error) {
	var gi *ignore.GitIgnore
	if cfg.gitignoreEnabled() {
		gi = loadGitignore(root)
	}
	logRel := NormalizePath(cfg.LogFile)

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable entries
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if cfg.ignored(d.Name()) {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if rel == logRel {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
