package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	t.Parallel()

	errs := Errors{}
	require.NoError(t, errs.Err())

	errs.Add("email", "Email is required")
	errs.Add("email", "second message is ignored")
	errs.Add("cvv", "Security code required")

	err := fmt.Errorf("checkout: %w", errs.Err())
	require.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "checkout: invalid fields: cvv, email", err.Error())

	fields, ok := FieldsOf(err)
	require.True(t, ok)
	assert.Equal(t, "Email is required", fields["email"])

	_, ok = FieldsOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

type signupForm struct {
	Name    string `json:"name" validate:"notblank,min=3,username"`
	Secret  string `json:"secret" validate:"notblank,min=8,haslower,hasupper,hasdigit"`
	Confirm string `json:"confirm" validate:"eqfield=Secret"`
	Card    string `json:"card,omitempty" validate:"omitempty,cardnumber"`
	Note    string `validate:"max=3"`
}

func (signupForm) FieldMessages() Messages {
	return Messages{"name.notblank": "Name is required", "name": "Name is invalid", "secret.hasdigit": "Add a number"}
}

func TestStruct(t *testing.T) {
	t.Parallel()

	valid := signupForm{Name: "jay.g", Secret: "Passw0rd", Confirm: "Passw0rd", Card: "4111 1111 1111 1111"}

	tests := []struct {
		name   string
		mutate func(*signupForm)
		want   Errors
	}{
		{name: "valid", mutate: func(*signupForm) {}, want: Errors{}},
		{name: "whitespace only", mutate: func(f *signupForm) { f.Name = " \t" }, want: Errors{"name": "Name is required"}},
		{name: "field fallback", mutate: func(f *signupForm) { f.Name = "a b" }, want: Errors{"name": "Name is invalid"}},
		{name: "first failed rule wins", mutate: func(f *signupForm) { f.Secret, f.Confirm = "password", "password" }, want: Errors{"secret": "secret is invalid"}},
		{name: "per tag message", mutate: func(f *signupForm) { f.Secret, f.Confirm = "Password", "Password" }, want: Errors{"secret": "Add a number"}},
		{name: "mismatch", mutate: func(f *signupForm) { f.Confirm = "other" }, want: Errors{"confirm": "confirm is invalid"}},
		{name: "short card", mutate: func(f *signupForm) { f.Card = "4111 1111" }, want: Errors{"card": "card is invalid"}},
		{name: "untagged json name", mutate: func(f *signupForm) { f.Note = "long" }, want: Errors{"Note": "Note is invalid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := valid
			tt.mutate(&f)
			assert.Equal(t, tt.want, Struct(f, f.FieldMessages()))
		})
	}
}

func TestStruct_PanicsOnNonStruct(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { Struct("nope", nil) })
}

func TestValidator(t *testing.T) {
	t.Parallel()

	var v Validator
	require.NoError(t, v.Validate(&signupForm{Name: "jay", Secret: "Passw0rd", Confirm: "Passw0rd"}))

	err := v.Validate(&signupForm{Secret: "Passw0rd", Confirm: "Passw0rd"})
	require.ErrorIs(t, err, ErrInvalid)
	fields, ok := FieldsOf(err)
	require.True(t, ok)
	assert.Equal(t, Errors{"name": "Name is required"}, fields)
}

func TestStripSpaces(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "41111111", StripSpaces(" 4111\t1111\n"))
}
