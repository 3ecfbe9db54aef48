package runcmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/okian/soarbridge/internal/domain/types"
)

// ArgList collects repeated -arg key=value flags.
type ArgList []string

func (a *ArgList) String() string { return strings.Join(*a, ",") }

// Set implements flag.Value.
func (a *ArgList) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("%w: -arg wants key=value, got %q", ErrUsage, v)
	}
	*a = append(*a, v)
	return nil
}

// BuildArgs merges, in increasing precedence, a JSON args file, a JSON
// object string and key=value pairs.
func BuildArgs(file, raw string, pairs []string) (types.Args, error) {
	args := types.Args{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrArgFile, err)
		}
		if err := mergeJSON(args, data); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	if strings.TrimSpace(raw) != "" {
		if err := mergeJSON(args, []byte(raw)); err != nil {
			return nil, fmt.Errorf("-args: %w", err)
		}
	}
	for _, p := range pairs {
		k, v, _ := strings.Cut(p, "=")
		args[strings.TrimSpace(k)] = v
	}
	return args, nil
}

func mergeJSON(dst types.Args, data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: args must be a JSON object: %w", types.ErrInvalidArgument, err)
	}
	for k, v := range m {
		dst[k] = v
	}
	return nil
}
