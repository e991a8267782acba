package domain

import "errors"

var (
	ErrEmptyMessage       = errors.New("message has neither text nor media")
	ErrUnauthorized       = errors.New("sender is not authorized")
	ErrMediaNotFound      = errors.New("media not found")
	ErrMediaFetch         = errors.New("failed to fetch media")
	ErrTextExtraction     = errors.New("failed to extract text from image")
	ErrGeneration         = errors.New("failed to generate answer")
	ErrEmptyAnswer        = errors.New("empty answer")
	ErrSendingReplyFailed = errors.New("failed to send reply")
)
