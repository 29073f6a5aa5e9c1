/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// safaricomCallbackIPs are the published Daraja callback origins
var safaricomCallbackIPs = []string{
	"196.201.214.200",
	"196.201.214.206",
	"196.201.213.114",
	"196.201.214.207",
	"196.201.214.208",
	"196.201.213.44",
	"196.201.212.127",
	"196.201.212.138",
	"196.201.212.129",
	"196.201.212.136",
	"196.201.212.74",
	"196.201.212.69",
}

type AllowlistConfig struct {
	Addresses []string `yaml:"addresses"`
}

// DefaultAllowlist returns a copy of the built-in Safaricom address set
func DefaultAllowlist() []string {
	return append([]string(nil), safaricomCallbackIPs...)
}

// LoadAllowlist reads the addresses allowed to call guarded webhooks. An
// empty path selects the built-in set.
func LoadAllowlist(allowlistFile string) ([]string, error) {
	if allowlistFile == "" {
		return DefaultAllowlist(), nil
	}

	var allowlistPath string
	if filepath.IsAbs(allowlistFile) {
		allowlistPath = allowlistFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		allowlistPath = filepath.Join(wd, allowlistFile)
	}

	data, err := os.ReadFile(allowlistPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", allowlistFile, err)
	}

	var allowlist AllowlistConfig
	if err := yaml.Unmarshal(data, &allowlist); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", allowlistFile, err)
	}

	addresses := make([]string, 0, len(allowlist.Addresses))
	for i, address := range allowlist.Addresses {
		address = strings.TrimSpace(address)
		if address == "" {
			return nil, fmt.Errorf("allowlist entry at index %d is empty", i)
		}
		addresses = append(addresses, address)
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("%s lists no addresses", allowlistFile)
	}

	return addresses, nil
}
