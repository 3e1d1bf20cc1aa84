// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package config discovers and parses the CLI's config file and resolves the
// settings that can be overridden from flags and the environment.
package config

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v3"
)

const (
	// SettingsKey holds the CLI's own settings. Every other top-level key
	// names a provider.
	SettingsKey = "cloudGraph"

	DefaultHost = "http://localhost:8080"

	HostEnv      = "DGRAPH_HOST"
	AuthTokenEnv = "DGRAPH_AUTH_TOKEN"
)

// FileNames are the candidate config file names, in search order.
var FileNames = []string{
	".cloud-graphrc.json",
	".cloud-graphrc.yaml",
	".cloud-graphrc.yml",
	".cloud-graphrc.toml",
}

// StorageConfig locates the storage engine by parts.
type StorageConfig struct {
	Scheme string
	Host   string
	Port   string
}

// URL returns scheme://host[:port], defaulting the scheme to http.
func (s StorageConfig) URL() string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	if s.Port == "" {
		return scheme + "://" + s.Host
	}
	return scheme + "://" + s.Host + ":" + s.Port
}

// Settings are the values under the cloudGraph key.
type Settings struct {
	DgraphHost    string
	StorageConfig *StorageConfig
	// VersionLimit caps the snapshot versions offered for selection. Zero means no cap.
	VersionLimit int
	DataDir      string
}

// File is a parsed config file.
type File struct {
	// Path is empty when no config file was found.
	Path      string
	Settings  Settings
	Providers map[string]map[string]any
}

// ProviderNames returns the configured providers, sorted.
func (f *File) ProviderNames() []string {
	names := make([]string, 0, len(f.Providers))
	for n := range f.Providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Discover returns the first config file found in dirs, trying every name
// in FileNames per directory. It returns "" when there is none.
func Discover(fs billy.Filesystem, dirs ...string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, name := range FileNames {
			p := path.Join(dir, name)
			if _, err := fs.Stat(p); err == nil {
				return p, nil
			} else if !os.IsNotExist(err) {
				return "", errors.Wrapf(err, "checking %s", p)
			}
		}
	}
	return "", nil
}

// SearchDirs returns the default directories searched for a config file.
func SearchDirs() []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, path.Join(home, ".config", "cloudgraph"))
	}
	return dirs
}

// Load reads the config file at p. An empty p yields an empty config.
func Load(fs billy.Filesystem, p string) (*File, error) {
	f := &File{Path: p, Providers: map[string]map[string]any{}}
	if p == "" {
		return f, nil
	}
	b, err := util.ReadFile(fs, p)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	var raw map[string]any
	if strings.HasSuffix(p, ".toml") {
		err = toml.Unmarshal(b, &raw)
	} else {
		err = yaml.Unmarshal(b, &raw)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", p)
	}
	for k, v := range raw {
		m, _ := v.(map[string]any)
		if k == SettingsKey {
			if f.Settings, err = parseSettings(m); err != nil {
				return nil, errors.Wrapf(err, "parsing %s", SettingsKey)
			}
			continue
		}
		if m == nil {
			m = map[string]any{}
		}
		f.Providers[k] = m
	}
	return f, nil
}

func parseSettings(m map[string]any) (Settings, error) {
	var s Settings
	s.DgraphHost = str(m["dgraphHost"])
	s.DataDir = str(m["dataDir"])
	if v, ok := m["versionLimit"]; ok {
		n, err := strconv.Atoi(str(v))
		if err != nil || n < 0 {
			return s, errors.Errorf("versionLimit must be a non-negative integer, got %v", v)
		}
		s.VersionLimit = n
	}
	if sc, ok := m["storageConfig"].(map[string]any); ok {
		s.StorageConfig = &StorageConfig{
			Scheme: str(sc["scheme"]),
			Host:   str(sc["host"]),
			Port:   str(sc["port"]),
		}
		if s.StorageConfig.Host == "" {
			return s, errors.New("storageConfig.host is required")
		}
	}
	return s, nil
}

// str renders a scalar config value. JSON and TOML decode numbers into
// different types so every scalar is normalized through its string form.
func str(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Host resolves the storage engine host. The first non-empty of the flag,
// the environment, dgraphHost and storageConfig wins.
func Host(flagHost string, getenv func(string) string, s Settings) string {
	switch {
	case flagHost != "":
		return flagHost
	case getenv(HostEnv) != "":
		return getenv(HostEnv)
	case s.DgraphHost != "":
		return s.DgraphHost
	case s.StorageConfig != nil:
		return s.StorageConfig.URL()
	}
	return DefaultHost
}

// LoadEnv applies the dotenv file at name to the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadEnv(fs billy.Filesystem, name string) error {
	f, err := fs.Open(name)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "opening %s", name)
	}
	defer f.Close()
	vars, err := godotenv.Parse(f)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", name)
	}
	for k, v := range vars {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return errors.Wrapf(err, "setting %s", k)
		}
	}
	return nil
}
