// Package flags provides pflag values for the CLI: yes/no toggles and closed choice sets.
package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	toggleTrueCanonicalValue               = "true"
	toggleFalseCanonicalValue              = "false"
	toggleValueTypeConstant                = "bool"
	toggleParseErrorTemplate               = "invalid toggle value %q"
	toggleArgumentTruePlaceholderConstant  = "<YES|no>"
	toggleArgumentFalsePlaceholderConstant = "<yes|NO>"
	toggleUsageTemplateConstant            = "`%s` %s"
	longFlagPrefixConstant                 = "--"
	shortFlagPrefixConstant                = "-"
	flagValueSeparatorConstant             = "="
)

var toggleLiterals = map[string]bool{
	"true":  true,
	"yes":   true,
	"on":    true,
	"1":     true,
	"t":     true,
	"y":     true,
	"false": false,
	"no":    false,
	"off":   false,
	"0":     false,
	"f":     false,
	"n":     false,
}

// ToggleValue is a boolean pflag.Value that also accepts yes/no, on/off and 1/0 literals.
type ToggleValue struct {
	target *bool
}

// AddToggleFlag registers a toggle on flagSet. A bare --name sets the toggle to true.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}
	*target = defaultValue

	placeholder := toggleArgumentFalsePlaceholderConstant
	if defaultValue {
		placeholder = toggleArgumentTruePlaceholderConstant
	}

	registeredFlag := flagSet.VarPF(&ToggleValue{target: target}, name, shorthand, strings.TrimSpace(fmt.Sprintf(toggleUsageTemplateConstant, placeholder, usage)))
	registeredFlag.NoOptDefVal = toggleTrueCanonicalValue
}

// Set parses a toggle literal case-insensitively. An empty value means true.
func (value *ToggleValue) Set(rawValue string) error {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		normalizedValue = toggleTrueCanonicalValue
	}
	parsedValue, recognized := toggleLiterals[normalizedValue]
	if !recognized {
		return fmt.Errorf(toggleParseErrorTemplate, rawValue)
	}
	*value.target = parsedValue
	return nil
}

func (value *ToggleValue) String() string {
	if value == nil || value.target == nil || !*value.target {
		return toggleFalseCanonicalValue
	}
	return toggleTrueCanonicalValue
}

// Type reports bool so configuration binding decodes the flag as a boolean.
func (value *ToggleValue) Type() string {
	return toggleValueTypeConstant
}

// NormalizeToggleArguments joins "--toggle value" into "--toggle=value" for toggles defined on flagSet.
// Without this rewrite pflag would treat the value as a positional argument because of NoOptDefVal.
func NormalizeToggleArguments(flagSet *pflag.FlagSet, arguments []string) []string {
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == longFlagPrefixConstant {
			return append(normalized, arguments[index:]...)
		}
		if index+1 < len(arguments) && isBareToggle(flagSet, current) && !strings.HasPrefix(arguments[index+1], shortFlagPrefixConstant) {
			if _, isLiteral := toggleLiterals[strings.ToLower(strings.TrimSpace(arguments[index+1]))]; isLiteral {
				normalized = append(normalized, current+flagValueSeparatorConstant+arguments[index+1])
				index++
				continue
			}
		}
		normalized = append(normalized, current)
	}
	return normalized
}

func isBareToggle(flagSet *pflag.FlagSet, argument string) bool {
	if flagSet == nil || strings.Contains(argument, flagValueSeparatorConstant) {
		return false
	}

	var candidateFlag *pflag.Flag
	switch {
	case strings.HasPrefix(argument, longFlagPrefixConstant):
		candidateFlag = flagSet.Lookup(strings.TrimPrefix(argument, longFlagPrefixConstant))
	case strings.HasPrefix(argument, shortFlagPrefixConstant) && len(argument) == 2:
		candidateFlag = flagSet.ShorthandLookup(strings.TrimPrefix(argument, shortFlagPrefixConstant))
	}
	if candidateFlag == nil {
		return false
	}
	_, isToggle := candidateFlag.Value.(*ToggleValue)
	return isToggle
}
