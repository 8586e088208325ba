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

// Package logutil2 holds the context-aware logging helpers. Fields attached
// with logutil.WithFields travel with the context and are added to every
// entry logged through this package.
package logutil2

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matrixorigin/moradix/pkg/logutil"
)

func logger(ctx context.Context) *zap.Logger {
	return logutil.GetGlobalLogger().WithOptions(zap.AddCallerSkip(1), logutil.ContextFields()(ctx))
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	logger(ctx).Debug(msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	logger(ctx).Info(msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	logger(ctx).Warn(msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	logger(ctx).Error(msg, fields...)
}

func Debugf(ctx context.Context, msg string, fields ...interface{}) {
	logger(ctx).Sugar().Debugf(msg, fields...)
}

func Infof(ctx context.Context, msg string, fields ...interface{}) {
	logger(ctx).Sugar().Infof(msg, fields...)
}

func Warnf(ctx context.Context, msg string, fields ...interface{}) {
	logger(ctx).Sugar().Warnf(msg, fields...)
}

func Errorf(ctx context.Context, msg string, fields ...interface{}) {
	logutil.GetGlobalLogger().WithOptions(zap.AddCallerSkip(1), logutil.ContextFields()(ctx), zap.AddStacktrace(zap.ErrorLevel)).Sugar().Errorf(msg, fields...)
}

// Stage logs the start of a named stage at debug level and returns a func
// that logs its duration when called.
//
//	defer logutil2.Stage(ctx, "partition")()
func Stage(ctx context.Context, name string, fields ...zap.Field) func() {
	start := time.Now()
	l := logger(ctx).With(zap.String("stage", name))
	l.Debug("stage begin", fields...)
	return func() {
		l.Debug("stage end", zap.Duration("cost", time.Since(start)))
	}
}
