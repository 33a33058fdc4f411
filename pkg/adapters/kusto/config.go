package kusto

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DefaultDatabase is sent when a statement is not scoped to a database.
const DefaultDatabase = "NetDefaultDB"

// Params holds Kusto-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// DefaultDatabase replaces an empty database name on the wire.
	DefaultDatabase string `mapstructure:"default_database"`

	// Compression requests gzip-encoded responses (default true).
	Compression *bool `mapstructure:"compression"`

	// MaxResponseBytes caps how much of a response body is read. Zero means unlimited.
	MaxResponseBytes int64 `mapstructure:"max_response_bytes"`
}

// compressionEnabled reports whether gzip should be requested.
func (p Params) compressionEnabled() bool {
	return p.Compression == nil || *p.Compression
}

// decodeParams converts the loosely typed params map into Params.
func decodeParams(raw map[string]any) (Params, error) {
	var p Params
	if len(raw) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			Result:           &p,
		})
		if err != nil {
			return Params{}, err
		}
		if err := dec.Decode(raw); err != nil {
			return Params{}, fmt.Errorf("invalid kusto params: %w", err)
		}
	}
	if p.DefaultDatabase == "" {
		p.DefaultDatabase = DefaultDatabase
	}
	if p.MaxResponseBytes < 0 {
		return Params{}, fmt.Errorf("invalid kusto params: max_response_bytes must not be negative")
	}
	return p, nil
}
