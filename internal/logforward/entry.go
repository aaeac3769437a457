package logforward

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Stacks accepted by the remote log service.
const (
	StackBackend  = "backend"
	StackFrontend = "frontend"
)

// Packages lists the package names accepted for each stack.
var Packages = map[string][]string{
	StackBackend: {
		"cache", "controller", "cron_job", "db", "domain", "handler",
		"repository", "route", "service",
		"auth", "config", "middleware", "utils",
	},
	StackFrontend: {
		"api", "component", "hook", "page", "state", "style",
		"auth", "config", "middleware", "utils",
	},
}

// ErrInvalidEntry is returned when an entry names an unknown stack, level or package.
var ErrInvalidEntry = errors.New("invalid log input")

// Entry is one log line submitted to the remote service.
type Entry struct {
	Stack   string `json:"stack" validate:"required,oneof=backend frontend"`
	Level   string `json:"level" validate:"required,oneof=debug info warn error fatal"`
	Package string `json:"package" validate:"required"`
	Message string `json:"message"`
}

// Normalize lowercases the enumerated fields.
func (e *Entry) Normalize() {
	e.Stack = strings.ToLower(strings.TrimSpace(e.Stack))
	e.Level = strings.ToLower(strings.TrimSpace(e.Level))
	e.Package = strings.ToLower(strings.TrimSpace(e.Package))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		entry := sl.Current().Interface().(Entry)
		allowed, ok := Packages[entry.Stack]
		if !ok {
			return
		}
		if !slices.Contains(allowed, entry.Package) {
			sl.ReportError(entry.Package, "Package", "package", "stackpackage", entry.Stack)
		}
	}, Entry{})
	return v
}

// Validate normalizes the entry in place and checks it against the accepted values.
func Validate(e *Entry) error {
	e.Normalize()
	if err := validate.Struct(*e); err != nil {
		return fmt.Errorf("%w: stack=%q, level=%q, package=%q",
			ErrInvalidEntry, e.Stack, e.Level, e.Package)
	}
	return nil
}
