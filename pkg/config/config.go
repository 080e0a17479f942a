/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config pkg/config/config.go loads the monitoring core's JSON
// config file and layers environment overrides and defaults on top of it,
// in the precedence order spec.md §6 documents: file, then env, then
// built-in defaults for anything still unset.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCore reads path as a JSON-encoded Core, applies environment variable
// overrides, and validates the result, filling in defaults for anything
// neither the file nor the environment set. Env is applied before
// validation so a DATABASE_URL supplied only via the environment still
// satisfies the required-field check.
func LoadCore(path string) (*Core, error) {
	var cfg Core
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}

	ApplyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFile reads a JSON file from path into dst.
func loadFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	return nil
}
