package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment references in s.
//
//   - $VAR and ${VAR} expand via os.ExpandEnv.
//   - A ${VAR} whose variable is unset fails with every missing name
//     listed, rather than silently expanding to "".
//   - $$ escapes a literal dollar sign.
func ExpandEnvStrict(s string) (string, error) {
	// Hide escaped dollars from both the missing-var scan and os.ExpandEnv.
	// NUL cannot appear in config text, so the marker cannot collide.
	const escapedDollar = "\x00querygate-dollar\x00"
	s = strings.ReplaceAll(s, "$$", escapedDollar)

	var missing []string
	seen := make(map[string]struct{})
	for _, match := range envRefPattern.FindAllStringSubmatch(s, -1) {
		name := match[1]
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, escapedDollar, "$"), nil
}
