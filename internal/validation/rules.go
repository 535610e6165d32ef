package validation

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Messages maps a failed rule to the text shown next to the field. Keys are
// "field.tag" for one rule or "field" for any rule on that field. Field names
// are the json names.
type Messages map[string]string

// Messenger is implemented by request types that carry their own messages.
type Messenger interface {
	FieldMessages() Messages
}

var std = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)

	must(v.RegisterValidation("notblank", validators.NotBlank))
	must(v.RegisterValidation("haslower", has(unicode.IsLower)))
	must(v.RegisterValidation("hasupper", has(unicode.IsUpper)))
	must(v.RegisterValidation("hasdigit", has(unicode.IsDigit)))
	must(v.RegisterValidation("username", userName))
	must(v.RegisterValidation("cardnumber", cardNumber))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func has(class func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), class) >= 0
	}
}

func userName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._@+-", r)))
	}) < 0
}

// cardNumber accepts exactly 16 digits once whitespace is removed.
func cardNumber(fl validator.FieldLevel) bool {
	s := StripSpaces(fl.Field().String())
	return len(s) == 16 && strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}

func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Struct runs the validate tags of s and reports the first failed rule of
// each field. It panics when s is not a struct.
func Struct(s any, msgs Messages) Errors {
	errs := Errors{}
	err := std.Struct(s)
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		panic(err)
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(msgs, fe))
	}
	return errs
}

func message(msgs Messages, fe validator.FieldError) string {
	if m, ok := msgs[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	if m, ok := msgs[fe.Field()]; ok {
		return m
	}
	return fe.Field() + " is invalid"
}

// Validator plugs the rules into echo's Context.Validate.
type Validator struct{}

func (Validator) Validate(i any) error {
	var msgs Messages
	if m, ok := i.(Messenger); ok {
		msgs = m.FieldMessages()
	}
	return Struct(i, msgs).Err()
}
