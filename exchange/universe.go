package exchange

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed universes.json
var universesFile []byte

var universes = mustLoadUniverses(universesFile)

func mustLoadUniverses(content []byte) map[string][]string {
	out := make(map[string][]string)
	if err := json.Unmarshal(content, &out); err != nil {
		panic(fmt.Errorf("universes.json: %w", err))
	}
	return out
}

// Universe returns the symbols of a named universe (sp500, dow, nasdaq100).
// Names are case insensitive.
func Universe(name string) ([]string, error) {
	symbols, ok := universes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUniverse, name)
	}
	out := make([]string, len(symbols))
	copy(out, symbols)
	return out, nil
}

// Universes lists the known universe names.
func Universes() []string {
	names := make([]string, 0, len(universes))
	for name := range universes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
