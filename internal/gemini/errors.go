package gemini

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"
)

var (
	ErrEmptyResponse     = errors.New("gemini: empty response from model")
	ErrMalformedResponse = errors.New("gemini: malformed response from model")
)

// ErrorClass buckets a collaborator failure for retry policy.
type ErrorClass int

const (
	// ClassPermanent failures will not improve on retry (bad request,
	// auth, malformed output, cancellation).
	ClassPermanent ErrorClass = iota
	// ClassTransient failures are worth retrying on the normal schedule.
	ClassTransient
	// ClassRateLimited failures deserve extra wait before retrying.
	ClassRateLimited
)

// Classify maps a collaborator error to its retry class.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassPermanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassPermanent
	}
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrMalformedResponse) {
		return ClassPermanent
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return ClassRateLimited
		case 500, 502, 503, 504:
			return ClassTransient
		default:
			return ClassPermanent
		}
	}

	// Fallback on message text for errors the SDK does not type.
	msg := strings.ToUpper(err.Error())
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429"):
		return ClassRateLimited
	case strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "OVERLOADED") || strings.Contains(msg, "DEADLINE"):
		return ClassTransient
	}
	return ClassPermanent
}
