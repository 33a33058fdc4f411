package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/core"
)

// =============================================================================
// Parameter declarations
// =============================================================================

// ResolutionOutcome tells apart "no parameters" from "could not tell".
type ResolutionOutcome int

const (
	// ResolutionEmpty means the declaration was empty or "()".
	ResolutionEmpty ResolutionOutcome = iota
	// ResolutionParsed means every entry was understood.
	ResolutionParsed
	// ResolutionDegraded means parsing failed and Parameters is empty.
	ResolutionDegraded
)

func (o ResolutionOutcome) String() string {
	switch o {
	case ResolutionEmpty:
		return "empty"
	case ResolutionParsed:
		return "parsed"
	case ResolutionDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("ResolutionOutcome(%d)", int(o))
	}
}

// ParameterResolution is the result of parsing a declared parameter list.
// Parameters is never nil. Err is set only for ResolutionDegraded.
type ParameterResolution struct {
	Parameters []core.FunctionParameter
	Outcome    ResolutionOutcome
	Err        error
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseFunctionParameters parses a declaration such as
// "(a: string, b: long = 5)". Commas, colons and equals signs nested in
// brackets or quotes are not treated as separators.
func ParseFunctionParameters(raw string) ParameterResolution {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "()" {
		return ParameterResolution{Parameters: []core.FunctionParameter{}, Outcome: ResolutionEmpty}
	}

	params, err := parseDeclaration(trimmed)
	if err != nil {
		return ParameterResolution{Parameters: []core.FunctionParameter{}, Outcome: ResolutionDegraded, Err: err}
	}
	if len(params) == 0 {
		return ParameterResolution{Parameters: params, Outcome: ResolutionEmpty}
	}
	return ParameterResolution{Parameters: params, Outcome: ResolutionParsed}
}

func parseDeclaration(decl string) ([]core.FunctionParameter, error) {
	if strings.HasPrefix(decl, "(") && strings.HasSuffix(decl, ")") {
		decl = decl[1 : len(decl)-1]
	}

	entries, err := splitTopLevel(decl, ',')
	if err != nil {
		return nil, err
	}

	params := make([]core.FunctionParameter, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		nameAndType, defaultValue, hasDefault := cutTopLevel(entry, '=')
		name, typ, hasType := cutTopLevel(nameAndType, ':')
		name = strings.TrimSpace(name)
		typ = strings.TrimSpace(typ)
		defaultValue = strings.TrimSpace(defaultValue)

		if !identifierRe.MatchString(name) {
			return nil, fmt.Errorf("invalid parameter name %q in %q", name, entry)
		}
		if hasType && typ == "" {
			return nil, fmt.Errorf("parameter %s has an empty type", name)
		}
		if !hasType {
			typ = core.DynamicType
		}
		if hasDefault && defaultValue == "" {
			return nil, fmt.Errorf("parameter %s has an empty default value", name)
		}

		p := core.FunctionParameter{Name: name, Type: typ, HasDefaultValue: hasDefault}
		if hasDefault {
			p.DefaultValue = defaultValue
		}
		params = append(params, p)
	}
	return params, nil
}

// splitTopLevel splits s on sep outside brackets and quoted strings.
// Verbatim strings (@"..." or @'...') take no backslash escapes; a doubled
// quote stands for the quote itself.
func splitTopLevel(s string, sep byte) ([]string, error) {
	var parts []string
	var depth int
	var quote byte
	var verbatim bool
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0 && verbatim:
			if c == quote {
				if i+1 < len(s) && s[i+1] == quote {
					i++
				} else {
					quote = 0
				}
			}
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			verbatim = i > 0 && s[i-1] == '@'
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth < 0 {
				return nil, errors.New("unbalanced brackets in parameter declaration")
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if depth != 0 || quote != 0 {
		return nil, errors.New("unterminated bracket or quote in parameter declaration")
	}
	return append(parts, s[start:]), nil
}

// cutTopLevel splits s around the first top-level sep.
func cutTopLevel(s string, sep byte) (before, after string, found bool) {
	parts, err := splitTopLevel(s, sep)
	if err != nil || len(parts) == 1 {
		return s, "", false
	}
	return parts[0], s[len(parts[0])+1:], true
}

// =============================================================================
// Argument verification
// =============================================================================

// VerifyParameters checks that every parameter without a default is supplied.
// The first missing parameter is reported.
func VerifyParameters(params []core.FunctionParameter, args map[string]any) error {
	for _, p := range params {
		if _, ok := args[p.Name]; !ok && !p.HasDefaultValue {
			return validationError(ErrMissingParameter, "Required parameter '%s' is missing", p.Name)
		}
	}
	return nil
}

// =============================================================================
// Invocation building
// =============================================================================

// forbiddenOperations may not appear anywhere in a pipeline suffix.
var forbiddenOperations = []string{".set", ".drop", ".create", ".alter", ".delete"}

// Invocation is a parameterized function call. Values in Parameters are
// bound out-of-band and never appear in Statement.
type Invocation struct {
	Statement  string
	Parameters map[string]any

	declaration string
	call        string
}

// ValidatePipeline checks a caller-supplied pipeline suffix and returns it trimmed.
func ValidatePipeline(pipeline string) (string, error) {
	trimmed := strings.TrimSpace(pipeline)
	lower := strings.ToLower(trimmed)
	for _, op := range forbiddenOperations {
		if strings.Contains(lower, op) {
			return "", validationError(ErrForbiddenOperation, "Operation '%s' not allowed", op)
		}
	}
	if !strings.HasPrefix(trimmed, "|") {
		return "", validationError(ErrInvalidPipeline, "Pipeline must start with '|'")
	}
	return trimmed, nil
}

// ValidateFunctionName rejects names that cannot be interpolated as a bare identifier.
func ValidateFunctionName(name string) error {
	if !identifierRe.MatchString(name) {
		return validationError(ErrInvalidIdentifier, "Invalid function name '%s'", name)
	}
	return nil
}

// BuildInvocation builds the call statement for name. Supplied arguments are
// declared as query parameters. Omitted defaulted parameters are left out of
// the call; once one is skipped, later arguments are passed by name.
func BuildInvocation(name string, params []core.FunctionParameter, args map[string]any, pipeline string) (Invocation, error) {
	if err := ValidateFunctionName(name); err != nil {
		return Invocation{}, err
	}

	var suffix string
	if strings.TrimSpace(pipeline) != "" {
		var err error
		if suffix, err = ValidatePipeline(pipeline); err != nil {
			return Invocation{}, err
		}
	}

	inv := Invocation{Parameters: map[string]any{}}
	var decls, callArgs []string
	named := false
	for _, p := range params {
		value, ok := args[p.Name]
		switch {
		case ok:
			decls = append(decls, p.Name+": "+p.Type)
			if named {
				callArgs = append(callArgs, p.Name+"="+p.Name)
			} else {
				callArgs = append(callArgs, p.Name)
			}
			inv.Parameters[p.Name] = value
		case p.HasDefaultValue:
			named = true
		default:
			return Invocation{}, validationError(ErrMissingParameter, "Required parameter '%s' is missing", p.Name)
		}
	}

	inv.setCall(name, decls, callArgs)
	if suffix != "" {
		inv.Statement += "\n" + suffix
	}
	return inv, nil
}

// BuildDiscoveryInvocation builds a dry-run call of name where every required
// parameter receives a fabricated value of its declared type.
func BuildDiscoveryInvocation(name string, params []core.FunctionParameter) (Invocation, error) {
	if err := ValidateFunctionName(name); err != nil {
		return Invocation{}, err
	}

	inv := Invocation{Parameters: map[string]any{}}
	var decls, callArgs []string
	for _, p := range params {
		if p.HasDefaultValue {
			continue
		}
		decls = append(decls, p.Name+": "+p.Type)
		callArgs = append(callArgs, p.Name)
		inv.Parameters[p.Name] = FakeValue(p.Type)
	}
	inv.setCall(name, decls, callArgs)
	return inv, nil
}

func (inv *Invocation) setCall(name string, decls, callArgs []string) {
	inv.call = name + "(" + strings.Join(callArgs, ", ") + ")"
	inv.Statement = inv.call
	if len(decls) > 0 {
		inv.declaration = "declare query_parameters(" + strings.Join(decls, ", ") + ");"
		inv.Statement = inv.declaration + "\n" + inv.call
	}
}

// FakeValue returns a placeholder of the given declared type.
func FakeValue(typ string) any {
	t := strings.ToLower(typ)
	switch {
	case strings.Contains(t, "string"):
		return "fake_string"
	case strings.Contains(t, "datetime"):
		return time.Now().UTC()
	case strings.Contains(t, "int"), strings.Contains(t, "long"):
		return 1
	case strings.Contains(t, "real"), strings.Contains(t, "double"):
		return 1.0
	case strings.Contains(t, "bool"):
		return true
	case strings.Contains(t, "timespan"):
		return "1h"
	default:
		return "fake_value"
	}
}
