package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	genai "google.golang.org/genai"
)

func TestClassifyAPIErrors(t *testing.T) {
	cases := []struct {
		code int
		want ErrorClass
	}{
		{429, ClassRateLimited},
		{500, ClassTransient},
		{503, ClassTransient},
		{400, ClassPermanent},
		{401, ClassPermanent},
		{404, ClassPermanent},
	}
	for _, tc := range cases {
		err := genai.APIError{Code: tc.code, Message: "x"}
		if got := Classify(err); got != tc.want {
			t.Errorf("code %d: class = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestClassifyWrappedAPIError(t *testing.T) {
	err := fmt.Errorf("generate: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"})
	if got := Classify(err); got != ClassRateLimited {
		t.Errorf("class = %v, want ClassRateLimited", got)
	}
}

func TestClassifyMessageFallback(t *testing.T) {
	if got := Classify(errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED")); got != ClassRateLimited {
		t.Errorf("class = %v, want ClassRateLimited", got)
	}
	if got := Classify(errors.New("the model is overloaded, try again later")); got != ClassTransient {
		t.Errorf("class = %v, want ClassTransient", got)
	}
	if got := Classify(errors.New("invalid argument")); got != ClassPermanent {
		t.Errorf("class = %v, want ClassPermanent", got)
	}
}

func TestClassifyLocalConditions(t *testing.T) {
	if got := Classify(context.Canceled); got != ClassPermanent {
		t.Error("cancellation must not be retried")
	}
	if got := Classify(ErrMalformedResponse); got != ClassPermanent {
		t.Error("malformed output must not be retried")
	}
}
