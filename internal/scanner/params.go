package scanner

import (
	"os"
	"sort"
	"strings"
)

// Scanner property keys.
const (
	PropProjectKey     = "sonar.projectKey"
	PropOrganization   = "sonar.organization"
	PropSources        = "sonar.sources"
	PropHostURL        = "sonar.host.url"
	PropLogin          = "sonar.login"
	PropSourceEncoding = "sonar.sourceEncoding"
	PropExclusions     = "sonar.exclusions"
	PropInclusions     = "sonar.inclusions"
	PropTests          = "sonar.tests"
	PropTestInclusions = "sonar.test.inclusions"
	PropLcovReports    = "sonar.javascript.lcov.reportPaths"
	PropVerbose        = "sonar.verbose"
)

// directoryRules are the properties that pin the scan to specific
// directories. The fallback parameter set drops them.
var directoryRules = []string{PropInclusions, PropTests, PropTestInclusions}

// AnalysisKey derives the project key from a repository name by replacing
// path separators with underscores.
func AnalysisKey(name string) string {
	key := strings.ReplaceAll(name, "/", "_")
	if os.PathSeparator != '/' {
		key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	}
	return key
}

// Params is a scanner property set.
type Params map[string]string

// Args renders the set as -Dkey=value arguments. The core properties come
// first in a fixed order, the rest follow sorted by key.
func (p Params) Args() []string {
	order := []string{
		PropProjectKey, PropOrganization, PropSources, PropHostURL,
		PropLogin, PropSourceEncoding,
	}

	seen := make(map[string]bool, len(order))
	args := make([]string, 0, len(p))
	for _, k := range order {
		seen[k] = true
		if v, ok := p[k]; ok {
			args = append(args, "-D"+k+"="+v)
		}
	}

	rest := make([]string, 0, len(p))
	for k := range p {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		args = append(args, "-D"+k+"="+p[k])
	}

	return args
}

// Fallback returns a copy without the directory-specific inclusion rules.
func (p Params) Fallback() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range directoryRules {
		delete(out, k)
	}
	return out
}

// HasDirectoryRules reports whether a fallback would differ from p.
func (p Params) HasDirectoryRules() bool {
	for _, k := range directoryRules {
		if _, ok := p[k]; ok {
			return true
		}
	}
	return false
}

// Redacted returns the arguments with the credential masked, for logging.
func (p Params) Redacted() []string {
	args := p.Args()
	for i, a := range args {
		if strings.HasPrefix(a, "-D"+PropLogin+"=") {
			args[i] = "-D" + PropLogin + "=****"
		}
	}
	return args
}
