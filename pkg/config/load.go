// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/env"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
)

// Overrides are the command line flags. Zero values leave the configuration
// untouched.
type Overrides struct {
	Hostname   string
	Username   string
	Password   string
	EmsID      int64
	Collectors []string
}

// Load builds the effective configuration. Precedence from highest to
// lowest: flags, environment, file, defaults. A missing file is not an
// error; everything may come from the environment instead.
func Load(path string, overrides Overrides, log *zap.SugaredLogger) (FullConfig, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)

		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Infof("Config file %s not found, using defaults", path)
		case err != nil:
			return FullConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			cfg, err = Parse(data)
			if err != nil {
				return FullConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg, err := ApplyEnv(cfg)
	if err != nil {
		return FullConfig{}, err
	}

	cfg = ApplyOverrides(cfg, overrides)
	cfg = normalize(cfg)

	if err := cfg.Validate(); err != nil {
		return FullConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes a YAML document on top of the defaults. Unknown keys are
// rejected.
func Parse(data []byte) (FullConfig, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return FullConfig{}, err
	}

	return cfg, nil
}

// Marshal renders cfg as YAML, e.g. for a dry run.
func Marshal(cfg FullConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// ApplyEnv applies the environment variables of a single provider
// deployment. The EMS_* variables target the first provider, which is
// created if the file defines none.
func ApplyEnv(cfg FullConfig) (FullConfig, error) {
	out := cfg.Clone()

	var errs []error

	str := func(key string, target *string) {
		value, err := env.GetAsString(key, false, "")
		if err != nil {
			errs = append(errs, err)

			return
		}

		if value != "" {
			*target = value
		}
	}

	integer := func(key string, target *int) {
		if _, ok := env.Lookup(key); !ok {
			return
		}

		value, err := env.GetAsInt64(key, false, 0)
		if err != nil {
			errs = append(errs, err)

			return
		}

		*target = int(value)
	}

	_, backendSet := env.Lookup("QUEUE_BACKEND")

	str("QUEUE_BACKEND", &out.Queue.Backend)
	str("Q_HOSTNAME", &out.Queue.Host)
	integer("Q_PORT", &out.Queue.Port)
	str("Q_USER", &out.Queue.Username)
	str("Q_PASSWORD", &out.Queue.Password)
	integer("METRICS_PORT", &out.Agent.MetricsPort)
	integer("STATUS_PORT", &out.Agent.StatusPort)

	// A queue host without an explicit backend means a real broker.
	if !backendSet && out.Queue.Host != "" && out.Queue.Backend == publisher.BackendLog {
		out.Queue.Backend = publisher.BackendKafka
	}

	if anyProviderEnv() {
		if len(out.Providers) == 0 {
			out.Providers = append(out.Providers, ProviderConfig{})
		}

		p := &out.Providers[0]
		str("EMS_HOSTNAME", &p.Hostname)
		str("EMS_USERNAME", &p.Username)
		str("EMS_PASSWORD", &p.Password)
		integer("MAX_WAIT_SECONDS", &p.MaxWaitSeconds)

		if _, ok := env.Lookup("EMS_ID"); ok {
			id, err := env.GetAsInt64("EMS_ID", false, 0)
			if err != nil {
				errs = append(errs, err)
			} else {
				p.EmsID = id
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return FullConfig{}, err
	}

	return out, nil
}

func anyProviderEnv() bool {
	for _, key := range []string{"EMS_HOSTNAME", "EMS_USERNAME", "EMS_PASSWORD", "EMS_ID", "MAX_WAIT_SECONDS"} {
		if _, ok := env.Lookup(key); ok {
			return true
		}
	}

	return false
}

// ApplyOverrides applies the command line flags to the first provider.
func ApplyOverrides(cfg FullConfig, o Overrides) FullConfig {
	out := cfg.Clone()

	if o.Hostname == "" && o.Username == "" && o.Password == "" && o.EmsID == 0 && len(o.Collectors) == 0 {
		return out
	}

	if len(out.Providers) == 0 {
		out.Providers = append(out.Providers, ProviderConfig{})
	}

	p := &out.Providers[0]

	if o.Hostname != "" {
		p.Hostname = o.Hostname
	}

	if o.Username != "" {
		p.Username = o.Username
	}

	if o.Password != "" {
		p.Password = o.Password
	}

	if o.EmsID != 0 {
		p.EmsID = o.EmsID
	}

	if len(o.Collectors) > 0 {
		p.Collectors = append([]string(nil), o.Collectors...)
	}

	return out
}

// normalize fills provider defaults that depend on other fields.
func normalize(cfg FullConfig) FullConfig {
	for i := range cfg.Providers {
		p := &cfg.Providers[i]

		if p.Name == "" {
			p.Name = p.Hostname
		}

		if len(p.Collectors) == 0 {
			p.Collectors = []string{CollectorInventory}
		}
	}

	return cfg
}
