package errors

import (
	"errors"
	"fmt"
)

// Stage identifies which pipeline stage an error originated from.
type Stage string

const (
	StageExtraction    Stage = "extraction"
	StageStaging       Stage = "staging"
	StageTranscription Stage = "transcription"
	StageRevision      Stage = "revision"
	StageAssembly      Stage = "assembly"
	StageRender        Stage = "render"
)

type AppError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
	Timeout bool   `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Extraction(op string, err error, message string) *AppError {
	return &AppError{Stage: StageExtraction, Message: message, Op: op, Err: err}
}

func Staging(op string, err error, message string) *AppError {
	return &AppError{Stage: StageStaging, Message: message, Op: op, Err: err}
}

func TranscriptionFailed(op string, err error, message string) *AppError {
	return &AppError{Stage: StageTranscription, Message: message, Op: op, Err: err}
}

func TranscriptionTimeout(op string, err error, message string) *AppError {
	return &AppError{Stage: StageTranscription, Message: message, Op: op, Err: err, Timeout: true}
}

func Revision(op string, err error, message string) *AppError {
	return &AppError{Stage: StageRevision, Message: message, Op: op, Err: err}
}

func Assembly(op string, err error, message string) *AppError {
	return &AppError{Stage: StageAssembly, Message: message, Op: op, Err: err}
}

func Render(op string, err error, message string) *AppError {
	return &AppError{Stage: StageRender, Message: message, Op: op, Err: err}
}

func stageOf(err error) (Stage, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stage, true
	}
	return "", false
}

func IsExtraction(err error) bool {
	s, ok := stageOf(err)
	return ok && s == StageExtraction
}

func IsStaging(err error) bool {
	s, ok := stageOf(err)
	return ok && s == StageStaging
}

func IsTranscription(err error) bool {
	s, ok := stageOf(err)
	return ok && s == StageTranscription
}

func IsTranscriptionTimeout(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Stage == StageTranscription && appErr.Timeout
}

func IsAssembly(err error) bool {
	s, ok := stageOf(err)
	return ok && s == StageAssembly
}

func IsRender(err error) bool {
	s, ok := stageOf(err)
	return ok && s == StageRender
}
