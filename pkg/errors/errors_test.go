package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"invalid input", fmt.Errorf("parsing k: %w", ErrInvalidInput), http.StatusBadRequest},
		{"negative k", ErrNegativeK, http.StatusBadRequest},
		{"duplicate title", fmt.Errorf("row 4: %w", ErrDuplicateTitle), http.StatusUnprocessableEntity},
		{"model not ready", ErrModelNotReady, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrDuplicateTitle, http.StatusConflict, "title %q", "Love Song")
	if !errors.Is(err, ErrDuplicateTitle) {
		t.Fatal("expected AppError to unwrap to its sentinel")
	}
	if err.Error() != `duplicate title in corpus: title "Love Song"` {
		t.Errorf("unexpected message %q", err.Error())
	}
}
