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

// Package env reads typed values from environment variables.
//
// Every getter distinguishes between "unset" and "set but invalid": an unset
// optional variable yields the default, an invalid one is always an error so a
// typo in a deployment manifest does not silently fall back.
package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup returns the trimmed value of key and whether it was set to a
// non-empty value.
func Lookup(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))

	return value, value != ""
}

// GetAsString returns the variable as a string.
func GetAsString(key string, required bool, defaultValue string) (string, error) {
	value, ok := Lookup(key)
	if !ok {
		if required {
			return "", fmt.Errorf("required environment variable %s is not set", key)
		}

		return defaultValue, nil
	}

	return value, nil
}

// GetAsInt64 returns the variable parsed as a base-10 integer.
func GetAsInt64(key string, required bool, defaultValue int64) (int64, error) {
	value, ok := Lookup(key)
	if !ok {
		if required {
			return 0, fmt.Errorf("required environment variable %s is not set", key)
		}

		return defaultValue, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}

	return parsed, nil
}

// GetAsBool returns the variable parsed as a boolean. Accepted spellings are
// true/false, 1/0, yes/no, y/n and on/off.
func GetAsBool(key string, required bool, defaultValue bool) (bool, error) {
	value, ok := Lookup(key)
	if !ok {
		if required {
			return false, fmt.Errorf("required environment variable %s is not set", key)
		}

		return defaultValue, nil
	}

	switch strings.ToLower(value) {
	case "true", "1", "yes", "y", "on":
		return true, nil
	case "false", "0", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("environment variable %s must be a boolean value, got %q", key, value)
	}
}

// GetAsDuration returns the variable parsed with time.ParseDuration. A bare
// integer is read as seconds.
func GetAsDuration(key string, required bool, defaultValue time.Duration) (time.Duration, error) {
	value, ok := Lookup(key)
	if !ok {
		if required {
			return 0, fmt.Errorf("required environment variable %s is not set", key)
		}

		return defaultValue, nil
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a duration: %w", key, err)
	}

	return parsed, nil
}
