package dialog

import (
	"github.com/viant/structology/conv"
)

var converter = conv.NewConverter(conv.DefaultOptions())

// Bind copies submitted form values onto a caller-typed struct, matching
// fields by name/tag the same way session state is bound elsewhere in the
// runtime. target must be a pointer.
func Bind(values map[string]string, target interface{}) error {
	src := make(map[string]interface{}, len(values))
	for k, v := range values {
		src[k] = v
	}
	return converter.Convert(src, target)
}
