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
	"context"

	"go.uber.org/zap"
)

type fieldsKey struct{}

// WithFields returns a copy of ctx carrying fields. Every log call made
// through the context-aware helpers appends them to the entry.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FieldsFromContext returns the fields attached by WithFields.
func FieldsFromContext(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	return fields
}

type ContextFieldsOption func(context.Context) zap.Option

// ContextFields returns the option builder used to attach context fields.
func ContextFields() ContextFieldsOption {
	return contextFields
}

func contextFields(ctx context.Context) zap.Option {
	return zap.Fields(FieldsFromContext(ctx)...)
}
