package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the project-level configuration file.
const ConfigFileName = "restruct.yaml"

// Config represents the restruct.yaml configuration file.
type Config struct {
	Ignore           []string      `yaml:"ignore"`
	SourceExts       []string      `yaml:"source_exts"`
	DescriptorNames  []string      `yaml:"descriptor_names"`
	DescriptorExts   []string      `yaml:"descriptor_exts"`
	SourcePrefix     string        `yaml:"source_prefix"`
	PrefixAliases    []PrefixAlias `yaml:"prefix_aliases"`
	TestManifest     string        `yaml:"test_manifest"`
	GuardLookbehind  int           `yaml:"guard_lookbehind"`
	GuardLookahead   int           `yaml:"guard_lookahead"`
	BackupDir        string        `yaml:"backup_dir"`
	LogFile          string        `yaml:"log_file"`
	BuildCommand     string        `yaml:"build_command"`
	VCS              string        `yaml:"vcs"`
	RespectGitignore *bool         `yaml:"respect_gitignore"`
	PruneEmptyDirs   *bool         `yaml:"prune_empty_dirs"`
}

// PrefixAlias retries a reference starting with From as To + rest.
type PrefixAlias struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	yes := true
	prune := true
	return Config{
		Ignore: []string{
			".git", "build", ".venv", "venv", "__pycache__", ".idea", ".vscode",
			"cmake-build-debug", ".githooks", ".github", "Testing",
			dataDirName, ".refactor_backups",
		},
		SourceExts:       []string{".c", ".cpp", ".cc", ".cxx", ".h", ".hpp", ".hh", ".hxx"},
		DescriptorNames:  []string{"CMakeLists.txt"},
		DescriptorExts:   []string{".cmake"},
		SourcePrefix:     "src",
		PrefixAliases:    []PrefixAlias{{From: "core/", To: "src/core/"}},
		TestManifest:     "tests/CMakeLists.txt",
		GuardLookbehind:  5,
		GuardLookahead:   10,
		BackupDir:        ".refactor_backups",
		LogFile:          "restruct.log",
		BuildCommand:     "cmake --build build --config Debug --parallel 8",
		VCS:              "auto",
		RespectGitignore: &yes,
		PruneEmptyDirs:   &prune,
	}
}

// LoadConfig reads restruct.yaml from the project root and overlays it on the defaults.
// Returns the defaults and nil error if the file does not exist.
func LoadConfig(root string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filepath.Join(root, ConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("%s: %w", ConfigFileName, err)
	}
	cfg.merge(file)
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", ConfigFileName, err)
	}
	return cfg, nil
}

func (c *Config) merge(f Config) {
	if f.Ignore != nil {
		c.Ignore = f.Ignore
	}
	if f.SourceExts != nil {
		c.SourceExts = f.SourceExts
	}
	if f.DescriptorNames != nil {
		c.DescriptorNames = f.DescriptorNames
	}
	if f.DescriptorExts != nil {
		c.DescriptorExts = f.DescriptorExts
	}
	if f.SourcePrefix != "" {
		c.SourcePrefix = f.SourcePrefix
	}
	if f.PrefixAliases != nil {
		c.PrefixAliases = f.PrefixAliases
	}
	if f.TestManifest != "" {
		c.TestManifest = f.TestManifest
	}
	if f.GuardLookbehind > 0 {
		c.GuardLookbehind = f.GuardLookbehind
	}
	if f.GuardLookahead > 0 {
		c.GuardLookahead = f.GuardLookahead
	}
	if f.BackupDir != "" {
		c.BackupDir = f.BackupDir
	}
	if f.LogFile != "" {
		c.LogFile = f.LogFile
	}
	if f.BuildCommand != "" {
		c.BuildCommand = f.BuildCommand
	}
	if f.VCS != "" {
		c.VCS = f.VCS
	}
	if f.RespectGitignore != nil {
		c.RespectGitignore = f.RespectGitignore
	}
	if f.PruneEmptyDirs != nil {
		c.PruneEmptyDirs = f.PruneEmptyDirs
	}
}

func (c *Config) validate() error {
	switch c.VCS {
	case "auto", "git", "none":
	default:
		return fmt.Errorf("invalid vcs: %q (must be auto, git or none)", c.VCS)
	}
	for _, a := range c.PrefixAliases {
		if a.From == "" || a.To == "" {
			return fmt.Errorf("prefix alias needs both from and to: %+v", a)
		}
	}
	if escapesRoot(NormalizePath(c.BackupDir)) {
		return fmt.Errorf("backup_dir must stay inside the project: %s", c.BackupDir)
	}
	return nil
}

// IsDescriptor reports whether rel is a build-descriptor file.
func (c Config) IsDescriptor(rel string) bool {
	name := baseOf(rel)
	for _, n := range c.DescriptorNames {
		if name == n {
			return true
		}
	}
	return hasExt(name, c.DescriptorExts)
}

// IsSource reports whether rel is a source-like text file.
func (c Config) IsSource(rel string) bool {
	return hasExt(baseOf(rel), c.SourceExts)
}

// IsTextCandidate reports whether rel is scanned by the reference planner.
func (c Config) IsTextCandidate(rel string) bool {
	return c.IsSource(rel) || c.IsDescriptor(rel)
}

func (c Config) ignored(name string) bool {
	for _, n := range c.Ignore {
		if n == name {
			return true
		}
	}
	return false
}

func (c Config) gitignoreEnabled() bool {
	return c.RespectGitignore == nil || *c.RespectGitignore
}

func (c Config) pruneEnabled() bool {
	return c.PruneEmptyDirs == nil || *c.PruneEmptyDirs
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
