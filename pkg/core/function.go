package core

// FunctionParameter is one declared parameter of a stored function.
// A parameter without a default must be supplied by the caller.
type FunctionParameter struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	HasDefaultValue bool   `json:"hasDefaultValue"`
	DefaultValue    string `json:"defaultValue,omitempty"`
}

// OutputColumn describes one column produced by a stored function.
type OutputColumn struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// FunctionSchema is the resolved contract of a stored function.
type FunctionSchema struct {
	Name            string              `json:"name"`
	Parameters      []FunctionParameter `json:"parameters"`
	OutputSchema    []OutputColumn      `json:"outputSchema"`
	ExecutionTimeMs int64               `json:"executionTimeMs"`
}
