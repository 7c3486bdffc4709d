package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrEncoderInit       = errors.New("encoder init failure")
	ErrSinkIO            = errors.New("sink io failure")
	ErrPublication       = errors.New("publication failure")
	ErrDirectoryCreate   = errors.New("directory create failure")
	ErrResolverWalk      = errors.New("resolver walk failure")
	ErrEviction          = errors.New("eviction failure")
	ErrConfiguration     = errors.New("configuration error")
	ErrValidation        = errors.New("validation error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later outcome classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Failure labels recorded for aborted or partially failed captures.
const (
	FailureNone              = ""
	FailureSourceUnavailable = "source_unavailable"
	FailureEncoderInit       = "encoder_init"
	FailureSinkIO            = "sink_io"
	FailurePublication       = "publication"
	FailureUnknown           = "unknown"
)

// Classify maps a capture error to its failure label. Publication wins over
// directory creation because a directory failure is reported as a publication
// failure.
func Classify(err error) string {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrSourceUnavailable):
		return FailureSourceUnavailable
	case errors.Is(err, ErrEncoderInit):
		return FailureEncoderInit
	case errors.Is(err, ErrSinkIO):
		return FailureSinkIO
	case errors.Is(err, ErrPublication), errors.Is(err, ErrDirectoryCreate):
		return FailurePublication
	default:
		return FailureUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
