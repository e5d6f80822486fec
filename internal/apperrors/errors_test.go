package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeSurvivesWrapping(t *testing.T) {
	err := New(KindStateConflict, CodeAlreadyReserved, "garment %d is held", 42)
	wrapped := fmt.Errorf("accept failed: %w", err)

	if !Is(wrapped, CodeAlreadyReserved) {
		t.Errorf("expected code %s through wrapping, got %q", CodeAlreadyReserved, Code(wrapped))
	}
	if Is(errors.New("plain"), CodeAlreadyReserved) {
		t.Error("plain errors must not match any code")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{NotAuthorized("not yours"), http.StatusForbidden},
		{InvalidStateTransition("wrong state"), http.StatusConflict},
		{New(KindResourceLimit, CodeProposalLimitExceeded, "too many"), http.StatusTooManyRequests},
		{NotFound("missing"), http.StatusNotFound},
		{errors.New("database down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
