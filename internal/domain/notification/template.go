package notification

import (
	"fmt"
	"regexp"
)

// FallbackTemplate is used when no template row exists for a notification
// type. Operators see the raw placeholders in previews, which is the point.
const FallbackTemplate = "Notification: {type} count: {count}"

// Template is a stored message template. ID doubles as the notification type
// key. Channels is the ordered list of allowed channels; the first entry is
// the default when a generation request names none.
type Template struct {
	ID       string
	Name     string
	Template string
	Channels []Channel
}

// DefaultChannel returns the template's first declared channel, or IN_APP.
func (t *Template) DefaultChannel() Channel {
	if len(t.Channels) > 0 {
		return t.Channels[0]
	}
	return ChannelInApp
}

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// Render substitutes {identifier} placeholders from vars. Placeholders with
// no matching variable are left verbatim rather than replaced with an empty
// string, so a template referencing a missing field stays visible. The
// grammar is flat substitution only; there is no escaping or conditionals.
func Render(template string, vars map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		v, ok := vars[key]
		if !ok {
			return match
		}
		return fmt.Sprintf("%v", v)
	})
}
