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
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/moradix/pkg/common/moerr"
	"github.com/matrixorigin/moradix/pkg/logutil"
)

type ConfigurationKeyType int

const (
	ConfigKey ConfigurationKeyType = 1
)

const (
	// MaxBucketBits bounds the radix width of one level.
	MaxBucketBits = 62

	defaultMaxBucketBits    = 20
	defaultLevelBits        = 4
	defaultTargetBucketRows = 4096
)

// numCPU is a variable so tests can pin the host parallelism.
var numCPU = runtime.NumCPU

// Config of the radix join engine.
type Config struct {
	// Workers is the size of the worker pool. default: number of CPUs.
	Workers int `toml:"workers"`

	// BucketBits is the radix width of the first level. 0 estimates it from
	// the build side cardinality.
	BucketBits int `toml:"bucket-bits"`

	// MaxBucketBits caps the estimated radix width. default: 20
	MaxBucketBits int `toml:"max-bucket-bits"`

	// TargetBucketRows is the build side rows a leaf bucket aims at when
	// BucketBits is estimated. default: 4096
	TargetBucketRows int `toml:"target-bucket-rows"`

	// RadixLevels is the number of partitioning passes. default: 1
	RadixLevels int `toml:"radix-levels"`

	// LevelBits is the radix width added by every level after the first. default: 4
	LevelBits int `toml:"level-bits"`

	// VerifyKeys drops joined pairs whose key values differ.
	VerifyKeys bool `toml:"verify-keys"`

	Log logutil.LogConfig `toml:"log"`

	Metric Metric `toml:"metric"`
}

type Metric struct {
	//default is false. if true, phase counters and timings are recorded
	Enable bool `toml:"enable"`
}

// LoadConfig decodes the toml file at path, fills defaults and validates.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, moerr.NewBadConfig(context.Background(), "decode %s: %v", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills every zero field that has a default.
func (c *Config) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = numCPU()
	}
	if c.MaxBucketBits == 0 {
		c.MaxBucketBits = defaultMaxBucketBits
	}
	if c.TargetBucketRows == 0 {
		c.TargetBucketRows = defaultTargetBucketRows
	}
	if c.RadixLevels == 0 {
		c.RadixLevels = 1
	}
	if c.LevelBits == 0 {
		c.LevelBits = defaultLevelBits
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.StacktraceLevel == "" {
		c.Log.StacktraceLevel = "panic"
	}
}

func (c *Config) Validate() error {
	ctx := context.Background()
	if c.Workers < 1 {
		return moerr.NewBadConfig(ctx, "workers %d", c.Workers)
	}
	if c.BucketBits < 0 || c.BucketBits > MaxBucketBits {
		return moerr.NewBadConfig(ctx, "bucket-bits %d not in [0, %d]", c.BucketBits, MaxBucketBits)
	}
	if c.MaxBucketBits < 1 || c.MaxBucketBits > MaxBucketBits {
		return moerr.NewBadConfig(ctx, "max-bucket-bits %d not in [1, %d]", c.MaxBucketBits, MaxBucketBits)
	}
	if c.TargetBucketRows < 1 {
		return moerr.NewBadConfig(ctx, "target-bucket-rows %d", c.TargetBucketRows)
	}
	if c.RadixLevels < 1 || c.LevelBits < 1 {
		return moerr.NewBadConfig(ctx, "radix-levels %d, level-bits %d", c.RadixLevels, c.LevelBits)
	}
	if c.BucketBits+(c.RadixLevels-1)*c.LevelBits > MaxBucketBits {
		return moerr.NewBadConfig(ctx, "total radix bits %d exceed %d",
			c.BucketBits+(c.RadixLevels-1)*c.LevelBits, MaxBucketBits)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return moerr.NewBadConfig(ctx, "log format %s", c.Log.Format)
	}
	return nil
}

// WithConfig returns a copy of ctx carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}

// GetConfig gets the configuration from the context.
func GetConfig(ctx context.Context) *Config {
	cfg, _ := ctx.Value(ConfigKey).(*Config)
	if cfg == nil {
		panic("configuration is invalid")
	}
	return cfg
}
