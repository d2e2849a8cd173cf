package cmds

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/trainmon/pkg/api"
	"github.com/go-go-golems/trainmon/pkg/artifact"
	"github.com/go-go-golems/trainmon/pkg/config"
	"github.com/go-go-golems/trainmon/pkg/monitor"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootOptions struct {
	WorkDir  string
	Config   string
	Timeout  time.Duration
	Settings config.Settings
}

func AddRootFlags(root *cobra.Command) {
	addRootFlags(root)
}

func addRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("work-dir", "", "Directory holding .trainmon.yaml and .env (defaults to current directory)")
	root.PersistentFlags().String("config", "", "Path to config file (defaults to .trainmon.yaml under work-dir)")
	root.PersistentFlags().String("api-url", "", "Training service base URL (overrides config and "+config.EnvAPIURL+")")
	root.PersistentFlags().String("state-dir", "", "Directory for the stored dataset selection")
	root.PersistentFlags().String("download-dir", "", "Directory downloaded models are written to")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout for results requests and for download response headers")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	return resolveRootOptions(cmd.Root().PersistentFlags())
}

// resolveRootOptions layers defaults, .trainmon.yaml, .env and the environment, then flags.
func resolveRootOptions(flags *pflag.FlagSet) (rootOptions, error) {
	workDir, err := flags.GetString("work-dir")
	if err != nil {
		return rootOptions{}, err
	}
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return rootOptions{}, err
	}

	cfgPath, err := flags.GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath(workDir)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(workDir, cfgPath)
	}

	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return rootOptions{}, err
	}
	if timeout <= 0 {
		return rootOptions{}, errors.New("timeout must be > 0")
	}

	if err := config.LoadDotEnv(workDir); err != nil {
		return rootOptions{}, err
	}
	f, err := config.LoadOptional(cfgPath)
	if err != nil {
		return rootOptions{}, err
	}
	settings := config.Resolve(workDir, f, os.Getenv)

	for name, dst := range map[string]*string{
		"api-url":      &settings.APIURL,
		"state-dir":    &settings.StateDir,
		"download-dir": &settings.DownloadDir,
	} {
		v, err := flags.GetString(name)
		if err != nil {
			return rootOptions{}, err
		}
		if v == "" {
			continue
		}
		if name != "api-url" && !filepath.IsAbs(v) {
			v = filepath.Join(workDir, v)
		}
		*dst = v
	}

	settings.APIURL, err = config.NormalizeBaseURL(settings.APIURL)
	if err != nil {
		return rootOptions{}, err
	}
	log.Debug().Str("api_url", settings.APIURL).Str("state_dir", settings.StateDir).Msg("settings resolved")

	return rootOptions{
		WorkDir:  workDir,
		Config:   cfgPath,
		Timeout:  timeout,
		Settings: settings,
	}, nil
}

func (o rootOptions) client() *api.Client {
	return api.NewClient(o.Settings.APIURL, api.WithHTTPClient(&http.Client{Timeout: o.Timeout}))
}

// saver bounds only the wait for response headers; the body of a large model file may take
// longer than --timeout to arrive.
func (o rootOptions) saver() *artifact.HTTPSaver {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = o.Timeout
	return &artifact.HTTPSaver{Client: &http.Client{Transport: tr}, Dir: o.Settings.DownloadDir}
}

func (o rootOptions) backoff() monitor.Backoff {
	return monitor.Backoff{
		Base:       o.Settings.BaseRetryDelay,
		Max:        o.Settings.MaxRetryDelay,
		MaxRetries: o.Settings.MaxRetries,
	}
}

// newSession wires a monitoring session against the configured service.
func (o rootOptions) newSession(n monitor.Notifier) *monitor.Session {
	c := o.client()
	return monitor.NewSession(monitor.SessionOptions{
		Transport:   monitor.NewHTTPTransport(c.StreamURL(), nil),
		Backoff:     o.backoff(),
		Results:     c,
		StateDir:    o.Settings.StateDir,
		DownloadURL: c.DownloadURL,
		Saver:       o.saver(),
		Notifier:    n,
	})
}
