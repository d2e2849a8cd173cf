package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFilename = ".trainmon.yaml"
	DefaultAPIURL         = "http://localhost:8000/"
	DefaultStateDirName   = ".trainmon"

	EnvAPIURL       = "TRAINMON_API_URL"
	EnvLegacyAPIURL = "NEXT_PUBLIC_API_URL"
)

type File struct {
	APIURL         string        `yaml:"api_url,omitempty"`
	StateDir       string        `yaml:"state_dir,omitempty"`
	DownloadDir    string        `yaml:"download_dir,omitempty"`
	MaxRetries     int           `yaml:"max_retries,omitempty"`
	BaseRetryDelay time.Duration `yaml:"base_retry_delay,omitempty"`
	MaxRetryDelay  time.Duration `yaml:"max_retry_delay,omitempty"`
}

// Settings is the resolved configuration after file, environment and flag layering.
type Settings struct {
	APIURL         string
	StateDir       string
	DownloadDir    string
	MaxRetries     int
	BaseRetryDelay time.Duration
	MaxRetryDelay  time.Duration
}

func Defaults(workDir string) Settings {
	return Settings{
		APIURL:         DefaultAPIURL,
		StateDir:       filepath.Join(workDir, DefaultStateDirName),
		DownloadDir:    workDir,
		MaxRetries:     10,
		BaseRetryDelay: 1 * time.Second,
		MaxRetryDelay:  30 * time.Second,
	}
}

func DefaultPath(workDir string) string {
	return filepath.Join(workDir, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

// LoadDotEnv loads a .env file from workDir into the process environment.
// Variables that are already set win; a missing file is not an error.
func LoadDotEnv(workDir string) error {
	path := filepath.Join(workDir, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "stat .env")
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(err, "load .env")
	}
	return nil
}

// Resolve layers defaults, the config file and the environment (in that order).
// Flag overrides are applied by the caller.
func Resolve(workDir string, f *File, getenv func(string) string) Settings {
	s := Defaults(workDir)
	if f != nil {
		if f.APIURL != "" {
			s.APIURL = f.APIURL
		}
		if f.StateDir != "" {
			s.StateDir = resolvePath(workDir, f.StateDir)
		}
		if f.DownloadDir != "" {
			s.DownloadDir = resolvePath(workDir, f.DownloadDir)
		}
		if f.MaxRetries > 0 {
			s.MaxRetries = f.MaxRetries
		}
		if f.BaseRetryDelay > 0 {
			s.BaseRetryDelay = f.BaseRetryDelay
		}
		if f.MaxRetryDelay > 0 {
			s.MaxRetryDelay = f.MaxRetryDelay
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvLegacyAPIURL); v != "" {
		s.APIURL = v
	}
	if v := getenv(EnvAPIURL); v != "" {
		s.APIURL = v
	}
	return s
}

// NormalizeBaseURL trims whitespace and guarantees exactly one trailing slash.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultAPIURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "parse api url %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Errorf("api url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", errors.Errorf("api url %q: missing host", raw)
	}
	return strings.TrimRight(raw, "/") + "/", nil
}

func resolvePath(workDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workDir, p)
}
