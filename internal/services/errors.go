package services

import "errors"

// Survey service errors
var (
	ErrSessionNotFound = errors.New("survey session not found")
	ErrUploadTooLarge  = errors.New("upload exceeds the size limit")
	ErrEmptyUpload     = errors.New("upload is empty")
	ErrInvalidInput    = errors.New("invalid input")
)
