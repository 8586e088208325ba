// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moradix/pkg/common/moerr"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "radix.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	stubs := gostub.Stub(&numCPU, func() int { return 6 })
	defer stubs.Reset()

	path := writeConfig(t, `
bucket-bits = 8
radix-levels = 2
verify-keys = true

[log]
level = "debug"
format = "json"

[metric]
enable = true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 6, cfg.Workers)
	require.Equal(t, 8, cfg.BucketBits)
	require.Equal(t, 2, cfg.RadixLevels)
	require.Equal(t, defaultLevelBits, cfg.LevelBits)
	require.Equal(t, defaultMaxBucketBits, cfg.MaxBucketBits)
	require.True(t, cfg.VerifyKeys)
	require.True(t, cfg.Metric.Enable)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "panic", cfg.Log.StacktraceLevel)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `workers = "many"`))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	_, err = LoadConfig(writeConfig(t, `workers = -2`))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Config)
		ok    bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bucket bits too wide", func(c *Config) { c.BucketBits = 63 }, false},
		{"levels exceed width", func(c *Config) { c.BucketBits = 60; c.RadixLevels = 2 }, false},
		{"negative levels", func(c *Config) { c.RadixLevels = -1 }, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"zero target", func(c *Config) { c.TargetBucketRows = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.SetDefaults()
			tt.apply(cfg)
			err := cfg.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig), "%v", err)
			}
		})
	}
}

func TestConfigContext(t *testing.T) {
	cfg := &Config{Workers: 2}
	ctx := WithConfig(context.Background(), cfg)
	require.Same(t, cfg, GetConfig(ctx))
	require.Panics(t, func() { GetConfig(context.Background()) })
}
