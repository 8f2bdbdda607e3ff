package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their TOML section.key name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("toml")
		if name == "" || name == "-" {
			return fld.Name
		}
		if i := strings.IndexByte(name, ','); i >= 0 {
			return name[:i]
		}
		return name
	})
	return v
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTags(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTags() error {
	err := structValidator.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fmt.Sprintf("%s %s", fieldPath(fe), friendlyMessage(fe)))
	}
	return errors.New(strings.Join(messages, "; "))
}

// fieldPath turns "Config.merge.codec" into "merge.codec".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be set"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "is invalid"
	}
}

func (c *Config) validateMerge() error {
	format := c.Merge.ChapterTitleFormat
	if strings.Count(format, "%d") != 1 || strings.Count(format, "%") != 1 {
		return fmt.Errorf("merge.chapter_title_format must contain exactly one %%d verb, got %q", format)
	}
	if c.Merge.Codec == "flac" && c.Merge.Bitrate > 0 {
		return errors.New("merge.bitrate must be 0 when merge.codec is flac")
	}
	return nil
}
