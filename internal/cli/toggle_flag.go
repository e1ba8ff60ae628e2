package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleFlagTypeName       = "toggle"
	toggleFlagImpliedLiteral = "true"
	toggleFlagAcceptedValues = "true, false, yes, no, on, off, 1, 0"
)

var toggleLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// toggleFlag is a boolean flag that also accepts yes/no and on/off literals,
// either attached with '=' or as the following argument.
type toggleFlag struct {
	target *bool
	name   string
}

func (flag *toggleFlag) Set(input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = toggleFlagImpliedLiteral
	}
	parsed, known := toggleLiterals[normalized]
	if !known {
		return fmt.Errorf("invalid value %q for --%s; accepted values: %s", input, flag.name, toggleFlagAcceptedValues)
	}
	*flag.target = parsed
	return nil
}

func (flag *toggleFlag) String() string {
	if flag == nil || flag.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*flag.target)
}

func (flag *toggleFlag) Type() string {
	return toggleFlagTypeName
}

func registerToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&toggleFlag{target: target, name: name}, name, usage)
	registered := flagSet.Lookup(name)
	registered.DefValue = strconv.FormatBool(defaultValue)
	registered.NoOptDefVal = toggleFlagImpliedLiteral
}

// normalizeToggleArguments rewrites "--flag no" into "--flag=no" for every
// toggle flag known to the command tree, so the literal is not taken as a
// positional argument.
func normalizeToggleArguments(command *cobra.Command, arguments []string) []string {
	toggles := map[string]struct{}{}
	collectToggleNames(command, toggles)
	if len(toggles) == 0 {
		return arguments
	}
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == "--" {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		name, isLongFlag := strings.CutPrefix(current, "--")
		if isLongFlag && !strings.Contains(name, "=") && index+1 < len(arguments) {
			if _, isToggle := toggles[name]; isToggle {
				next := arguments[index+1]
				if _, isLiteral := toggleLiterals[strings.ToLower(strings.TrimSpace(next))]; isLiteral {
					normalized = append(normalized, current+"="+next)
					index++
					continue
				}
			}
		}
		normalized = append(normalized, current)
	}
	return normalized
}

func collectToggleNames(command *cobra.Command, names map[string]struct{}) {
	record := func(flag *pflag.Flag) {
		if flag.Value.Type() == toggleFlagTypeName {
			names[flag.Name] = struct{}{}
		}
	}
	command.PersistentFlags().VisitAll(record)
	command.Flags().VisitAll(record)
	for _, child := range command.Commands() {
		collectToggleNames(child, names)
	}
}
