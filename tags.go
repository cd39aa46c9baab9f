package magnetar

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var tagColorRegexp = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)

// AssignmentTag is an organizer-facing category label for assignments.
type AssignmentTag struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

func (t *AssignmentTag) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 20)),
		validation.Field(&t.Color, validation.Match(tagColorRegexp)),
	)
}
