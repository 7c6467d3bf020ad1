package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// envVarPattern matches "$$" or a "${NAME}" placeholder.
var envVarPattern = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict replaces each ${NAME} in s with the value of the
// environment variable NAME. "$$" yields a literal "$". A bare $NAME is left
// alone so keys containing "$" survive. Every unset variable is named in the
// returned error.
func ExpandEnvStrict(s string) (string, error) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(s, func(m string) string {
		if m == "$$" {
			return "$"
		}
		name := m[2 : len(m)-1]
		v, ok := os.LookupEnv(name)
		if !ok && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return out, nil
}
