// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
)

// Result is a runtime result code. Negative values are failures.
// Result implements error so runtimes can return it directly.
type Result int32

// Success codes.
const (
	Success                Result = 0
	TimeoutExpired         Result = 1
	SessionLossPending     Result = 3
	EventUnavailable       Result = 4
	SpaceBoundsUnavailable Result = 7
	SessionNotFocused      Result = 8
	FrameDiscarded         Result = 9
)

// Failure codes.
const (
	ErrorValidationFailure                Result = -1
	ErrorRuntimeFailure                   Result = -2
	ErrorOutOfMemory                      Result = -3
	ErrorHandleInvalid                    Result = -12
	ErrorInstanceLost                     Result = -13
	ErrorSessionRunning                   Result = -14
	ErrorSessionNotRunning                Result = -16
	ErrorSessionLost                      Result = -17
	ErrorSystemInvalid                    Result = -18
	ErrorPathInvalid                      Result = -19
	ErrorPathUnsupported                  Result = -22
	ErrorSwapchainFormatUnsupported       Result = -26
	ErrorActionTypeMismatch               Result = -27
	ErrorSessionNotReady                  Result = -28
	ErrorSessionNotStopping               Result = -29
	ErrorFormFactorUnavailable            Result = -35
	ErrorCallOrderInvalid                 Result = -37
	ErrorViewConfigurationTypeUnsupported Result = -41
	ErrorActionSetNotAttached             Result = -46
	ErrorActionSetsAlreadyAttached        Result = -47
)

var resultNames = map[Result]string{
	Success:                               "XR_SUCCESS",
	TimeoutExpired:                        "XR_TIMEOUT_EXPIRED",
	SessionLossPending:                    "XR_SESSION_LOSS_PENDING",
	EventUnavailable:                      "XR_EVENT_UNAVAILABLE",
	SpaceBoundsUnavailable:                "XR_SPACE_BOUNDS_UNAVAILABLE",
	SessionNotFocused:                     "XR_SESSION_NOT_FOCUSED",
	FrameDiscarded:                        "XR_FRAME_DISCARDED",
	ErrorValidationFailure:                "XR_ERROR_VALIDATION_FAILURE",
	ErrorRuntimeFailure:                   "XR_ERROR_RUNTIME_FAILURE",
	ErrorOutOfMemory:                      "XR_ERROR_OUT_OF_MEMORY",
	ErrorHandleInvalid:                    "XR_ERROR_HANDLE_INVALID",
	ErrorInstanceLost:                     "XR_ERROR_INSTANCE_LOST",
	ErrorSessionRunning:                   "XR_ERROR_SESSION_RUNNING",
	ErrorSessionNotRunning:                "XR_ERROR_SESSION_NOT_RUNNING",
	ErrorSessionLost:                      "XR_ERROR_SESSION_LOST",
	ErrorSystemInvalid:                    "XR_ERROR_SYSTEM_INVALID",
	ErrorPathInvalid:                      "XR_ERROR_PATH_INVALID",
	ErrorPathUnsupported:                  "XR_ERROR_PATH_UNSUPPORTED",
	ErrorSwapchainFormatUnsupported:       "XR_ERROR_SWAPCHAIN_FORMAT_UNSUPPORTED",
	ErrorActionTypeMismatch:               "XR_ERROR_ACTION_TYPE_MISMATCH",
	ErrorSessionNotReady:                  "XR_ERROR_SESSION_NOT_READY",
	ErrorSessionNotStopping:               "XR_ERROR_SESSION_NOT_STOPPING",
	ErrorFormFactorUnavailable:            "XR_ERROR_FORM_FACTOR_UNAVAILABLE",
	ErrorCallOrderInvalid:                 "XR_ERROR_CALL_ORDER_INVALID",
	ErrorViewConfigurationTypeUnsupported: "XR_ERROR_VIEW_CONFIGURATION_TYPE_UNSUPPORTED",
	ErrorActionSetNotAttached:             "XR_ERROR_ACTIONSET_NOT_ATTACHED",
	ErrorActionSetsAlreadyAttached:        "XR_ERROR_ACTIONSETS_ALREADY_ATTACHED",
}

// String returns the symbolic result name.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "XR_RESULT(" + strconv.Itoa(int(r)) + ")"
}

// Error implements error.
func (r Result) Error() string {
	return r.String()
}

// Succeeded reports whether r is a success code.
func (r Result) Succeeded() bool {
	return r >= 0
}

// ResultOf extracts the Result carried by err. A nil error is Success and an
// error without a Result is ErrorRuntimeFailure.
func ResultOf(err error) Result {
	if err == nil {
		return Success
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	return ErrorRuntimeFailure
}

// CallError is a failed runtime call. It names the operation and the source
// location that issued it.
type CallError struct {
	// Op is the runtime function, e.g. "xrBeginSession".
	Op string

	// Location is file:line of the caller of Check.
	Location string

	// Result is the runtime result code.
	Result Result

	// Err is the error returned by the runtime.
	Err error
}

// Error implements error.
func (e *CallError) Error() string {
	return fmt.Sprintf("api: %s failed at %s: %v", e.Op, e.Location, e.Err)
}

// Unwrap returns the runtime error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Check converts a runtime error into a *CallError recording op and the
// caller's file and line. It returns nil when err is nil.
//
//	err := api.Check("xrBeginSession", rt.BeginSession(s, api.ViewConfigurationPrimaryStereo))
func Check(op string, err error) error {
	if err == nil {
		return nil
	}
	loc := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		loc = filepath.Base(file) + ":" + strconv.Itoa(line)
	}
	return &CallError{
		Op:       op,
		Location: loc,
		Result:   ResultOf(err),
		Err:      err,
	}
}
