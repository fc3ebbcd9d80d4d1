package formconfig

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig tags every load-time configuration failure so callers
// can gate on errors.Is without inspecting concrete types.
var ErrInvalidConfig = errors.New("formconfig: invalid configuration")

var errNoSections = &ConfigError{Message: "configuration has no sections"}

// ConfigError describes a structural problem in a FormConfig discovered at
// load time. The engine refuses to initialise on any ConfigError.
type ConfigError struct {
	SectionID string
	Field     string
	Message   string
}

func (e *ConfigError) Error() string {
	switch {
	case e.SectionID != "" && e.Field != "":
		return fmt.Sprintf("formconfig: section %q field %q: %s", e.SectionID, e.Field, e.Message)
	case e.SectionID != "":
		return fmt.Sprintf("formconfig: section %q: %s", e.SectionID, e.Message)
	default:
		return "formconfig: " + e.Message
	}
}

// Is makes every ConfigError match ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
