package internalerr

import (
	"errors"
	"fmt"
	"testing"
)

type sample struct {
	Name   string `validate:"required"`
	Rating int    `validate:"min=1,max=5"`
}

func TestValidateStructOK(t *testing.T) {
	if err := ValidateStruct(sample{Name: "soup", Rating: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStructReportsField(t *testing.T) {
	err := ValidateStruct(sample{Name: "soup", Rating: 7})
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != "sample.Rating" || verr.Tag != "max" {
		t.Errorf("unexpected field/tag: %s/%s", verr.Field, verr.Tag)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("validation errors should unwrap to ErrInvalidInput")
	}
}

func TestValidateStructRequired(t *testing.T) {
	err := ValidateStruct(sample{Rating: 2})
	if err == nil || err.Error() != "sample.Name is required" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIsIdempotent(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{ErrAlreadyRolledOut, true},
		{fmt.Errorf("rollout: %w", ErrAlreadyFinalized), true},
		{ErrAlreadyGeneratedThisPeriod, true},
		{ErrNotFound, false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsIdempotent(c.err); got != c.want {
			t.Errorf("IsIdempotent(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestInvalidWrapsSentinel(t *testing.T) {
	err := Invalid("unknown food item %d", 42)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("expected ErrInvalidInput")
	}
	if err.Error() != "invalid input: unknown food item 42" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
