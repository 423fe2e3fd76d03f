package domain

import "errors"

var (
	ErrNotFound            = errors.New("media item not found")
	ErrUnsupportedFormat   = errors.New("unsupported media format")
	ErrKindMismatch        = errors.New("media kind does not match the active kind")
	ErrAlreadyIngested     = errors.New("file already ingested")
	ErrNotEligible         = errors.New("item is not eligible for conversion")
	ErrAlreadyTargetFormat = errors.New("already target format")
	ErrItemConverting      = errors.New("item is converting")
	ErrBusy                = errors.New("a conversion is already running")
	ErrInvalidSettings     = errors.New("invalid settings")
)
