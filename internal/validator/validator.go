package validator

import (
	"chatapp-client/internal/models"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
)

var (
	hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	gradient = regexp.MustCompile(`^(linear|radial|conic)-gradient\(.+\)$`)
)

var validate = newValidate()

func newValidate() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())

	register := func(tag string, check func(string) error) {
		err := v.RegisterValidation(tag, func(fl playground.FieldLevel) bool {
			return check(fl.Field().String()) == nil
		})
		if err != nil {
			panic(err)
		}
	}
	register("rolecolor", Color)
	register("servericon", Icon)
	register("capability", Capability)

	return v
}

// Struct validates v by its `validate` tags. The error lists every failing
// field as field:tag, like "Name:required".
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validateErrs playground.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return err
	}

	fields := make([]string, 0, len(validateErrs))
	for _, e := range validateErrs {
		fields = append(fields, fmt.Sprintf("%s:%s", e.Field(), e.Tag()))
	}
	sort.Strings(fields)
	return fmt.Errorf("invalid input: %s", strings.Join(fields, ", "))
}

// Color accepts hex colors and css gradients.
func Color(color string) error {
	if color == "" {
		return nil
	}
	if len(color) > 256 {
		return fmt.Errorf("long_color")
	}
	if hexColor.MatchString(color) || gradient.MatchString(color) {
		return nil
	}
	return fmt.Errorf("bad_color")
}

// Icon accepts an emoji glyph, an http(s) image url or a css gradient.
func Icon(icon string) error {
	if icon == "" {
		return nil
	}

	if gradient.MatchString(icon) {
		if len(icon) > 256 {
			return fmt.Errorf("long_icon")
		}
		return nil
	}

	if strings.HasPrefix(icon, "http://") || strings.HasPrefix(icon, "https://") {
		u, err := url.Parse(icon)
		if err != nil || u.Host == "" {
			return fmt.Errorf("bad_url")
		}
		return nil
	}

	// emoji with modifiers or zero width joiners can take several runes
	if utf8.RuneCountInString(icon) <= 8 && !strings.ContainsAny(icon, " \t\n") {
		return nil
	}
	return fmt.Errorf("bad_icon")
}

func Capability(capability string) error {
	for _, c := range models.Capabilities {
		if c == capability {
			return nil
		}
	}
	return fmt.Errorf("unknown_capability")
}
