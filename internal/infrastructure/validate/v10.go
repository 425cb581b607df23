package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// PlaygroundV10 Validator implementation using go-playground
type PlaygroundV10 struct {
	core  *validator.Validate
	trans ut.Translator
}

var _ Validator = &PlaygroundV10{}

// NewValidator create a new Validator, messages are translated with locale,
// "en" is used when the locale is unknown
func NewValidator(locale ...string) *PlaygroundV10 {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())

	validate := validator.New()
	trans, _ := uni.GetTranslator("en")
	if len(locale) > 0 && locale[0] == "zh" {
		trans, _ = uni.GetTranslator("zh")
		zh_translations.RegisterDefaultTranslations(validate, trans)
	} else {
		en_translations.RegisterDefaultTranslations(validate, trans)
	}
	validate.RegisterTagNameFunc(JSONTagName)
	return &PlaygroundV10{
		core:  validate,
		trans: trans,
	}
}

// JSONTagName report json (or yaml) tag as field name
func JSONTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		name = strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return ""
		}
	}
	return name
}

// Struct validate struct
func (v PlaygroundV10) Struct(s interface{}) []*FieldError {
	if err := v.core.Struct(s); err != nil {
		return v.translate(err)
	}
	return nil
}

// Var validate single variable against tag
func (v PlaygroundV10) Var(name string, field interface{}, tag string) []*FieldError {
	if err := v.core.Var(field, tag); err != nil {
		result := v.translate(err)
		for _, fe := range result {
			fe.Domain = name
			fe.Reason = strings.TrimSpace(name + fe.Reason)
		}
		return result
	}
	return nil
}

func (v PlaygroundV10) translate(err error) []*FieldError {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []*FieldError{NewFieldError("", err.Error())}
	}
	result := make([]*FieldError, 0, len(errs))
	for _, item := range errs {
		result = append(result, NewFieldError(item.Field(), item.Translate(v.trans)))
	}
	return result
}

// Empty check if value is empty
func (v PlaygroundV10) Empty(varName string, s interface{}) []*FieldError {
	if err := v.core.Var(s, "required"); err != nil {
		return []*FieldError{NewFieldError(varName, fmt.Sprintf("%s is required", varName))}
	}
	return nil
}

// AllEmpty check if all fields are empty
//
// names and fields have one to one relationship respect to the order
func (v PlaygroundV10) AllEmpty(names []string, fields ...interface{}) *FieldError {
	if len(names) != len(fields) {
		panic(fmt.Errorf("number of name: %d, fields: %d", len(names), len(fields)))
	}

	for _, s := range fields {
		if err := v.core.Var(s, "required"); err == nil {
			return nil
		}
	}
	return NewFieldError(strings.Join(names, ","), "One of the fields should not be empty")
}
