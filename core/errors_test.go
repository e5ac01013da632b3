package core_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/comedor/core"
)

func TestValidationError(t *testing.T) {
	errUnresolved := errors.New("some students have no decision")

	tests := []struct {
		name      string
		err       error
		wantMsg   string
		wantField map[string]string
	}{
		{name: "cause only", err: core.NewValidationError(errUnresolved), wantMsg: errUnresolved.Error()},
		{
			name:      "single field",
			err:       core.NewFieldError("course_id", "this field is required"),
			wantMsg:   "course_id: this field is required",
			wantField: map[string]string{"course_id": "this field is required"},
		},
		{
			name: "cause and fields",
			err: core.NewValidationError(errUnresolved,
				core.FieldError{Field: "from", Error: "from is not a valid date"},
				core.FieldError{Field: "to", Error: "to is not a valid date"}),
			wantMsg:   errUnresolved.Error(),
			wantField: map[string]string{"from": "from is not a valid date", "to": "to is not a valid date"},
		},
		{name: "empty", err: core.NewValidationError(nil), wantMsg: "invalid input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vErr, ok := errors.Cause(errors.Wrap(tt.err, "validating")).(*core.ValidationError)
			if assert.True(t, ok) {
				assert.Equal(t, tt.wantMsg, vErr.Error())
				assert.Equal(t, tt.wantField, vErr.FieldMap())
			}
		})
	}
}

func TestIsShutdown(t *testing.T) {
	err := core.NewShutdownError("database unreachable")
	assert.True(t, core.IsShutdown(err))
	assert.True(t, core.IsShutdown(errors.Wrap(err, "taking roll call")))
	assert.Equal(t, "shutting down: database unreachable", err.Error())
	assert.False(t, core.IsShutdown(errors.New("database unreachable")))
	assert.False(t, core.IsShutdown(nil))
}
