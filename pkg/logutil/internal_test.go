// Copyright 2022 Matrix Origin
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

package logutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matrixorigin/moradix/pkg/common/moerr"
)

func TestLogConfig_level(t *testing.T) {
	for level, want := range map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"ERROR": zapcore.ErrorLevel,
	} {
		cfg := &LogConfig{Level: level}
		require.Equal(t, want, cfg.getLevel().Level(), level)
	}
	require.Panics(t, func() { (&LogConfig{Level: "chatty"}).getLevel() })
}

func TestLogConfig_stacktraceLevel(t *testing.T) {
	cfg := &LogConfig{Level: "info", Format: "json", StacktraceLevel: "loud"}
	require.Panics(t, func() { cfg.getOptions() })
	cfg.StacktraceLevel = ""
	require.Equal(t, zapcore.FatalLevel, cfg.getStacktraceLevel())
	cfg.StacktraceLevel = "error"
	require.Equal(t, zapcore.ErrorLevel, cfg.getStacktraceLevel())
	require.Len(t, cfg.getOptions(), 2)
}

// A phase line as the radix operators write it: message then fields.
func TestGetLoggerEncoder_phaseLine(t *testing.T) {
	entry := zapcore.Entry{Level: zapcore.DebugLevel, Message: "radix partition"}
	fields := []zap.Field{zap.String("type", "BIGINT"), zap.Int("buckets", 16)}

	buf, err := getLoggerEncoder("console").EncodeEntry(entry, fields)
	require.NoError(t, err)
	require.Regexp(t, `^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}\.\d{6} [+-]\d{4} DEBUG radix partition \{"type": "BIGINT", "buckets": 16\}`,
		buf.String())

	buf, err = getLoggerEncoder("json").EncodeEntry(entry, fields)
	require.NoError(t, err)
	require.Regexp(t, `"level":"DEBUG".*"msg":"radix partition".*"buckets":16`, buf.String())
}

func TestSetupMOLogger_badConfig(t *testing.T) {
	old := GetGlobalLogger()
	defer replaceGlobalLogger(old)

	func() {
		defer func() {
			err, ok := recover().(*moerr.Error)
			require.True(t, ok)
			require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
			require.Contains(t, err.Error(), "yaml")
		}()
		SetupMOLogger(&LogConfig{Level: "info", Format: "yaml"})
	}()

	require.PanicsWithValue(t, "log file can't be a directory", func() {
		SetupMOLogger(&LogConfig{Level: "info", Format: "json", Filename: t.TempDir()})
	})
	require.Same(t, old, GetGlobalLogger())
}

func TestLogConfig_fileSink(t *testing.T) {
	name := filepath.Join(t.TempDir(), "radix.log")
	cfg := &LogConfig{
		Level:    zapcore.InfoLevel.String(),
		Format:   "json",
		Filename: name,
	}
	logger := GetLoggerWithOptions(cfg.getLevel(), cfg.getEncoder(), cfg.getSyncer(), cfg.getOptions()...)
	logger.Debug("dropped")
	logger.Info("partitioned", zap.Int("buckets", 4))
	require.NoError(t, logger.Sync())
	require.Equal(t, 512, cfg.MaxSize)

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Regexp(t, `"msg":"partitioned".*"buckets":4`, string(data))
	require.NotContains(t, string(data), "dropped")
}

// With max-size 1 (MB) the file rotates once a megabyte of entries was
// written, keeping the configured backup.
func TestLogConfig_rotation(t *testing.T) {
	dir := t.TempDir()
	cfg := &LogConfig{
		Level:      "info",
		Format:     "json",
		Filename:   filepath.Join(dir, "radix.log"),
		MaxSize:    1,
		MaxBackups: 1,
	}
	logger := GetLoggerWithOptions(cfg.getLevel(), cfg.getEncoder(), cfg.getSyncer())
	payload := strings.Repeat("x", 1024)
	for i := 0; i < 1100; i++ {
		logger.Info("bucket", zap.Int("bucket", i), zap.String("payload", payload))
	}
	require.NoError(t, logger.Sync())
	require.Equal(t, 1, cfg.MaxSize)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(files), 2)
}
