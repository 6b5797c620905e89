package apperrors

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrNoActiveSession        = errors.New("no active session")
	ErrActiveSessionExists    = errors.New("active session already exists")
	ErrCaptureRunning         = errors.New("capture loop already running")
	ErrRecognitionUnsupported = errors.New("text recognition unsupported")
	ErrTickTimeout            = errors.New("capture tick timed out")
	ErrStoreClosed            = errors.New("store closed")
	ErrSummarizerDisabled     = errors.New("summarizer disabled")
	ErrLabelLimitReached      = errors.New("label limit reached")
	ErrLabelExists            = errors.New("label name already exists")
)
