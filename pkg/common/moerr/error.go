// Copyright 2021 - 2022 Matrix Origin
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

package moerr

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

const (
	// 0 - 99 is OK.  They do not contain info, and are special handled
	// using a static instance, no alloc.
	Ok    uint16 = 0
	OkMax uint16 = 99

	// Group 1: internal errors
	ErrStart            uint16 = 20100
	ErrInternal         uint16 = 20101
	ErrNYI              uint16 = 20102
	ErrQueryInterrupted uint16 = 20104

	// Group 2: invalid input
	ErrInvalidInput uint16 = 20301
	ErrBadConfig    uint16 = 20300

	// Group 3: shape and range violations of the radix core. These are
	// raised before any unsynchronized write happens.
	ErrShapeMismatch uint16 = 20409
	ErrOverflow      uint16 = 20410
	ErrInvalidIndex  uint16 = 20411

	// Group 4: type-erased boundary
	ErrTypeMismatch         uint16 = 20501
	ErrUnsupportedOperation uint16 = 20502

	// ErrEnd, the max value of MOErrorCode
	ErrEnd uint16 = 65535
)

type moErrorMsgItem struct {
	errorMsgOrFormat string
}

var errorMsgRefer = map[uint16]moErrorMsgItem{
	// Group 1: internal errors
	ErrStart:            {"internal error: error code start"},
	ErrInternal:         {"internal error: %s"},
	ErrNYI:              {"%s is not yet implemented"},
	ErrQueryInterrupted: {"query interrupted"},

	// Group 2: invalid input
	ErrInvalidInput: {"invalid input: %s"},
	ErrBadConfig:    {"invalid configuration: %s"},

	// Group 3: shape and range
	ErrShapeMismatch: {"shape mismatch: %s"},
	ErrOverflow:      {"overflow: %s"},
	ErrInvalidIndex:  {"invalid index: %s"},

	// Group 4: type-erased boundary
	ErrTypeMismatch:         {"type mismatch: stored type %s, requested type %s"},
	ErrUnsupportedOperation: {"unsupported operation %s for input types (%s)"},

	// Group End: max value of MOErrorCode
	ErrEnd: {"internal error: end of errcode code"},
}

func newError(ctx context.Context, code uint16, args ...any) *Error {
	item, has := errorMsgRefer[code]
	if !has {
		panic(NewInternalError(ctx, "not exist MOErrorCode: %d", code))
	}
	if len(args) == 0 {
		return &Error{
			code:    code,
			message: item.errorMsgOrFormat,
		}
	}
	return &Error{
		code:    code,
		message: fmt.Sprintf(item.errorMsgOrFormat, args...),
	}
}

type Error struct {
	code    uint16
	message string
	detail  string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Detail() string {
	return e.detail
}

func (e *Error) Display() string {
	if len(e.detail) == 0 {
		return e.message
	}
	return fmt.Sprintf("%s: %s", e.message, e.detail)
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func (e *Error) Succeeded() bool {
	return e.code < OkMax
}

func IsMoErrCode(e error, rc uint16) bool {
	if e == nil {
		return rc == Ok
	}

	me, ok := e.(*Error)
	if !ok {
		// This is not a moerr
		return false
	}
	return me.code == rc
}

func DowncastError(e error) *Error {
	if err, ok := e.(*Error); ok {
		return err
	}
	return newError(Context(), ErrInternal, fmt.Sprintf("downcast error failed: %v", e))
}

// ConvertPanicError converts a runtime panic to internal error.
func ConvertPanicError(ctx context.Context, v interface{}) *Error {
	if e, ok := v.(*Error); ok {
		return e
	}
	err := newError(ctx, ErrInternal, fmt.Sprintf("panic %v", v))
	err.detail = string(debug.Stack())
	return err
}

// ConvertGoError converts a go error into mo error.
// Note here we must return error, because nil error
// is the same as nil *Error -- Go strangeness.
func ConvertGoError(ctx context.Context, err error) error {
	// nil is nil
	if err == nil {
		return err
	}

	// already a moerr, return it as is
	if _, ok := err.(*Error); ok {
		return err
	}
	return NewInternalError(ctx, "convert go error to mo error %v", err)
}

func NewInternalError(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInternal, xmsg)
}

func NewNYI(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrNYI, xmsg)
}

func NewQueryInterrupted(ctx context.Context) *Error {
	return newError(ctx, ErrQueryInterrupted)
}

func NewInvalidInput(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInvalidInput, xmsg)
}

func NewBadConfig(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrBadConfig, xmsg)
}

func NewShapeMismatch(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrShapeMismatch, xmsg)
}

func NewOverflow(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrOverflow, xmsg)
}

func NewInvalidIndex(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInvalidIndex, xmsg)
}

// NewTypeMismatch reports both the stored and the requested type so that a
// bad downcast can be diagnosed from the message alone.
func NewTypeMismatch(ctx context.Context, stored, requested string) *Error {
	return newError(ctx, ErrTypeMismatch, stored, requested)
}

func NewUnsupportedOperation(ctx context.Context, op string, args string) *Error {
	return newError(ctx, ErrUnsupportedOperation, op, args)
}

func NewInternalErrorNoCtx(msg string, args ...any) *Error {
	return NewInternalError(Context(), msg, args...)
}

func NewShapeMismatchNoCtx(msg string, args ...any) *Error {
	return NewShapeMismatch(Context(), msg, args...)
}

func NewInvalidIndexNoCtx(msg string, args ...any) *Error {
	return NewInvalidIndex(Context(), msg, args...)
}

func NewTypeMismatchNoCtx(stored, requested string) *Error {
	return NewTypeMismatch(Context(), stored, requested)
}

var contextFunc atomic.Value

func SetContextFunc(f func() context.Context) {
	contextFunc.Store(f)
}

// Context returns the context used by the NoCtx constructors.
func Context() context.Context {
	return contextFunc.Load().(func() context.Context)()
}

func init() {
	SetContextFunc(func() context.Context { return context.Background() })
}
