// Package command contains write operations (CQRS - Commands).
//
// Every handler validates its command, writes the owning collaborator
// repository and then publishes the matching domain event. With the
// synchronous event bus the ranking recompute has finished by the time the
// handler returns.
package command

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidationError lists invalid command fields (field -> failed rule).
type ValidationError struct {
	Command string
	Fields  map[string]string
}

// Error implements error.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: invalid command: %s", e.Command, strings.Join(parts, ", "))
}

// Is makes ValidationError match shared.ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == shared.ErrValidation
}

// validateCommand runs struct tag validation and converts the result.
func validateCommand(name string, cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%s: %w", name, err)
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fieldPath(fe)] = rule
	}
	return &ValidationError{Command: name, Fields: fields}
}

// fieldPath strips the struct name from the namespace: "SavePlanCommand.tasks[0].description" -> "tasks[0].description".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// publish emits the event and reports a failed recompute to the caller.
func publish(ctx context.Context, p shared.EventPublisher, event shared.Event) error {
	if err := p.Publish(ctx, event); err != nil {
		return fmt.Errorf("recalculate rankings after %s: %w", event.EventType(), err)
	}
	return nil
}

func publisherOrNop(p shared.EventPublisher) shared.EventPublisher {
	if p == nil {
		return shared.NopPublisher{}
	}
	return p
}
