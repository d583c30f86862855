package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	SourcePath string `yaml:"source_path"`
	DestPath   string `yaml:"dest_path"`
	Profile    string `yaml:"profile"`
	LogDir     string `yaml:"log_dir"`
	Extractor  string `yaml:"extractor"` // library or tool
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/histmig/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		LogDir:    ".",
		Extractor: "library",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// Load ~/.config/histmig/config.yaml if it exists
	if err := loadYAMLConfig(cfg); err != nil {
		// YAML config is optional, so we don't fail if it doesn't exist
	}

	// Override with environment variables
	if sourcePath := os.Getenv("HISTMIG_SOURCE_PATH"); sourcePath != "" {
		cfg.SourcePath = sourcePath
	}
	if destPath := os.Getenv("HISTMIG_DEST_PATH"); destPath != "" {
		cfg.DestPath = destPath
	}
	if profile := os.Getenv("HISTMIG_PROFILE"); profile != "" {
		cfg.Profile = profile
	}
	if logDir := os.Getenv("HISTMIG_LOG_DIR"); logDir != "" {
		cfg.LogDir = logDir
	}
	if extractor := os.Getenv("HISTMIG_EXTRACTOR"); extractor != "" {
		cfg.Extractor = extractor
	}

	return cfg, nil
}

// ValidateExtractor validates an extraction strategy name
func ValidateExtractor(kind string) error {
	switch kind {
	case "library", "tool":
		return nil
	default:
		return fmt.Errorf("invalid extractor: must be one of: library, tool")
	}
}

// ResolveSource returns the Safari history path, falling back to the
// OS default when none is configured.
func (c *Config) ResolveSource() (string, error) {
	if c.SourcePath != "" {
		return c.SourcePath, nil
	}
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("no default Safari history location on %s: set --source or HISTMIG_SOURCE_PATH", runtime.GOOS)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, "Library", "Safari", "History.db"), nil
}

// ResolveDest returns the Chrome History path for the configured profile,
// unless an explicit destination path overrides profile selection.
func (c *Config) ResolveDest() (string, error) {
	if c.DestPath != "" {
		return c.DestPath, nil
	}

	userDataDir, err := ChromeUserDataDir()
	if err != nil {
		return "", err
	}

	profile := c.Profile
	if profile == "" {
		profile = "Default"
	}
	return filepath.Join(userDataDir, profile, "History"), nil
}

// ChromeUserDataDir returns the OS-specific Chrome user data directory.
func ChromeUserDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "Google", "Chrome"), nil
	case "linux":
		return filepath.Join(homeDir, ".config", "google-chrome"), nil
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "Google", "Chrome", "User Data"), nil
	default:
		return "", fmt.Errorf("no known Chrome location on %s: set --dest or HISTMIG_DEST_PATH", runtime.GOOS)
	}
}

// Profile is a Chrome profile that has a History database.
type Profile struct {
	Name        string
	HistoryPath string
}

// FindProfiles lists the profiles under a Chrome user data directory:
// Default first, then Profile N directories in name order. Only profiles
// with an existing History file are returned.
func FindProfiles(userDataDir string) ([]Profile, error) {
	if _, err := os.Stat(userDataDir); err != nil {
		return nil, fmt.Errorf("Chrome user data directory not found at %s", userDataDir)
	}

	var profiles []Profile

	defaultHistory := filepath.Join(userDataDir, "Default", "History")
	if _, err := os.Stat(defaultHistory); err == nil {
		profiles = append(profiles, Profile{Name: "Default", HistoryPath: defaultHistory})
	}

	matches, err := filepath.Glob(filepath.Join(userDataDir, "Profile *"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile directories: %w", err)
	}
	sort.Strings(matches)

	for _, dir := range matches {
		historyPath := filepath.Join(dir, "History")
		if _, err := os.Stat(historyPath); err == nil {
			profiles = append(profiles, Profile{Name: filepath.Base(dir), HistoryPath: historyPath})
		}
	}

	return profiles, nil
}

// loadYAMLConfig loads configuration from ~/.config/histmig/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "histmig", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Clean paths for reliable comparison
	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop if we've reached home directory
		if dir == homeDir {
			break
		}

		// Get parent directory
		parent := filepath.Dir(dir)

		// Stop if we've reached the filesystem root
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
