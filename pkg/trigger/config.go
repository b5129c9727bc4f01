package trigger

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Delivery modes.
const (
	ModeSimple = "simple"
	ModeBatch  = "batch"
)

// Notification thresholds, from the most to the least permissive.
const (
	ThresholdAll   = "all"
	ThresholdMajor = "major"
	ThresholdMinor = "minor"
	ThresholdPatch = "patch"
)

// Common holds the settings every provider accepts next to its own keys.
type Common struct {
	Mode        string `mapstructure:"mode"        validate:"oneof=simple batch"`
	Threshold   string `mapstructure:"threshold"   validate:"oneof=all major minor patch"`
	SimpleTitle string `mapstructure:"simpletitle"`
	SimpleBody  string `mapstructure:"simplebody"`
	BatchTitle  string `mapstructure:"batchtitle"`
}

// ApplyDefaults fills unset common settings.
func (c *Common) ApplyDefaults() {
	c.Mode = strings.ToLower(c.Mode)
	if c.Mode == "" {
		c.Mode = ModeSimple
	}

	c.Threshold = strings.ToLower(c.Threshold)
	if c.Threshold == "" {
		c.Threshold = ThresholdAll
	}

	if c.SimpleTitle == "" {
		c.SimpleTitle = DefaultSimpleTitle
	}

	if c.SimpleBody == "" {
		c.SimpleBody = DefaultSimpleBody
	}

	if c.BatchTitle == "" {
		c.BatchTitle = DefaultBatchTitle
	}
}

// Map returns the common settings for masked configuration views.
func (c Common) Map() map[string]any {
	return map[string]any{
		"mode":        c.Mode,
		"threshold":   c.Threshold,
		"simpletitle": c.SimpleTitle,
		"simplebody":  c.SimpleBody,
		"batchtitle":  c.BatchTitle,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance returns the shared validator with the custom tags registered.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// scheme=a b c accepts absolute URLs with a host whose scheme is listed.
		_ = validate.RegisterValidation("scheme", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			if value == "" {
				return true
			}

			parsed, err := url.Parse(value)
			if err != nil || parsed.Host == "" {
				return false
			}

			return slices.Contains(strings.Fields(fl.Param()), strings.ToLower(parsed.Scheme))
		})
	})

	return validate
}

// Decode converts a raw configuration map into out, a pointer to a provider configuration struct.
//
// Values are weakly typed so that strings read from the environment decode into numbers and
// booleans. Unknown keys are rejected.
func Decode(raw map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return nil
}

// Validate checks the validate struct tags of cfg.
func Validate(cfg any) error {
	if err := validatorInstance().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return nil
}
