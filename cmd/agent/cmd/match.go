package cmd

import (
	"fmt"
	"strings"

	"iotsync/internal/domain/record"
)

// parseMatch turns field=value arguments into a local-store filter.
func parseMatch(args []string) (record.Match, error) {
	if len(args) == 0 {
		return nil, nil
	}
	match := make(record.Match, len(args))
	for _, a := range args {
		field, value, ok := strings.Cut(a, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q, want field=value", a)
		}
		match[field] = value
	}
	return match, nil
}
