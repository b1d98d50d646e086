package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. EASY_CHAT_SERVER_PORT.
	EnvPrefix = "EASY_CHAT"
	// PathEnvVar names a configuration file consulted after the fixed locations.
	PathEnvVar = "EASY_CHAT_CONFIG"
)

// SearchPaths are the fixed configuration file locations, in lookup order.
var SearchPaths = []string{
	"./application.yaml",
	"/etc/config/easy-chat.yaml",
}

// ErrNotFound is returned when no configuration file can be located.
var ErrNotFound = errors.New("config: no configuration file found")

// FileSystem abstracts the file and environment access of the loader.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	Getenv(key string) string
}

// RealFileSystem implements FileSystem using the operating system.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (rfs *RealFileSystem) Getenv(key string) string {
	return os.Getenv(key)
}

// Resolver finds the configuration and .env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths from opts, falling back to the
// lookup order: SearchPaths, then $EASY_CHAT_CONFIG. The .env file is only
// looked up in the working directory.
func (cr *Resolver) ResolveFiles(opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.findConfigFile()
	}
	if resolved.EnvFile == "" && cr.FileSystem.Exists(".env") {
		resolved.EnvFile = ".env"
	}
	return resolved
}

func (cr *Resolver) findConfigFile() string {
	for _, path := range SearchPaths {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	if path := cr.FileSystem.Getenv(PathEnvVar); path != "" && cr.FileSystem.Exists(path) {
		return path
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path, bypassing the lookup.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig reads the configuration file into cfg, then applies .env and
// EASY_CHAT_ environment overrides. A missing file is an error.
func LoadConfig(cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(lc)
	if files.ConfigFile == "" {
		return ErrNotFound
	}
	if !lc.FileSystem.Exists(files.ConfigFile) {
		return fmt.Errorf("%w: %s", ErrNotFound, files.ConfigFile)
	}
	return loadFromResolvedFiles(cfg, files, lc.FileSystem)
}

func loadFromResolvedFiles(cfg interface{}, files ResolvedFiles, fs FileSystem) error {
	v := viper.New()

	v.SetConfigFile(files.ConfigFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", files.ConfigFile, err)
	}

	// .env never overrides variables already set in the environment.
	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("config: load %s: %w", files.EnvFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvOverrides(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal %s: %w", files.ConfigFile, err)
	}
	return nil
}

// bindEnvOverrides sets every EASY_CHAT_ variable under each nested key it
// could name. AutomaticEnv alone only covers keys already present in the
// file, and env names cannot tell a nesting underscore from a field one.
func bindEnvOverrides(v *viper.Viper, environ []string) {
	prefix := EnvPrefix + "_"
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, prefix) || key == PathEnvVar {
			continue
		}
		for _, variant := range envKeyVariants(strings.TrimPrefix(key, prefix)) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants lists the nested keys an env name may map to:
//
//	SERVER_PORT       -> [server_port, server.port]
//	DB_MAX_OPEN_CONNS -> [db_max_open_conns, db.max.open.conns, db.max_open_conns, db.max.open_conns]
func envKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{lowerKey, strings.Join(parts, ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return removeDuplicates(variants)
}

func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
