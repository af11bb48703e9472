package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name" validate:"notblank"`
}

type form struct {
	Email string `json:"email" validate:"required,email"`
	Items []item `json:"items" validate:"required,dive"`
	Skip  string `json:"-" validate:"omitempty,max=2"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(form{Email: "a@b.co", Items: []item{{Name: "x"}}}))

	err := Struct(form{Email: "nope", Items: []item{{Name: " "}}})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []FieldError{
		{Field: "email", Message: "email must be a valid email address"},
		{Field: "items[0].name", Message: "name cannot be blank"},
	}, verr.Fields)
	require.Equal(t, "email must be a valid email address; name cannot be blank", verr.Error())
}

func TestError_Err(t *testing.T) {
	var e *Error
	require.NoError(t, e.Err())
	e = &Error{}
	require.NoError(t, e.Err())
	e.Add("season", "season is required")
	require.EqualError(t, e.Err(), "season is required")
}
