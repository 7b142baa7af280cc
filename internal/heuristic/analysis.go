package heuristic

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
)

// Call families reported for recovered source
var (
	securityCalls = []string{"eval", "exec", "system", "shell_exec", "passthru", "assert",
		"base64_decode", "base64_encode", "md5", "sha1", "crypt", "openssl_"}
	fileCalls = []string{"fopen", "fwrite", "fread", "file_get_contents", "file_put_contents",
		"include", "require", "readfile", "unlink"}
	networkCalls = []string{"curl_exec", "curl_init", "fsockopen", "gethostbyname", "stream_socket_client", "ftp_"}
	databaseCalls = []string{"mysql_", "mysqli_", "pdo", "sqlite_", "pg_"}
)

var (
	functionNameRe = regexp.MustCompile(`(?i)\bfunction\s+&?([a-z_][a-z0-9_]*)\s*\(`)
	classNameRe    = regexp.MustCompile(`(?i)\b(?:class|interface|trait)\s+([a-z_][a-z0-9_]*)`)
	variableNameRe = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

	featurePatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"namespaces", regexp.MustCompile(`(?i)\bnamespace\s+[a-z_\\]`)},
		{"traits", regexp.MustCompile(`(?i)\btrait\s+[a-z_]`)},
		{"interfaces", regexp.MustCompile(`(?i)\binterface\s+[a-z_]`)},
		{"short_echo_tags", regexp.MustCompile(`<\?=`)},
		{"use_statements", regexp.MustCompile(`(?im)^\s*use\s+[a-z_\\]`)},
		{"closures", regexp.MustCompile(`(?i)\bfunction\s*\(`)},
		{"arrow_functions", regexp.MustCompile(`(?i)\bfn\s*\(`)},
	}
)

// TopVariables is how many of the most used variables are listed
const TopVariables = 20

// Analysis describes recovered source text
type Analysis struct {
	Size         int             `json:"size" yaml:"size"`
	Lines        int             `json:"lines" yaml:"lines"`
	Functions    []string        `json:"functions,omitempty" yaml:"functions,omitempty"`
	Classes      []string        `json:"classes,omitempty" yaml:"classes,omitempty"`
	Variables    []string        `json:"variables,omitempty" yaml:"variables,omitempty"`
	Security     []string        `json:"security_calls,omitempty" yaml:"security_calls,omitempty"`
	File         []string        `json:"file_calls,omitempty" yaml:"file_calls,omitempty"`
	Network      []string        `json:"network_calls,omitempty" yaml:"network_calls,omitempty"`
	Database     []string        `json:"database_calls,omitempty" yaml:"database_calls,omitempty"`
	Features     []string        `json:"features,omitempty" yaml:"features,omitempty"`
	Combinations []Combination   `json:"combinations,omitempty" yaml:"combinations,omitempty"`
	Entropy      *EntropyProfile `json:"entropy" yaml:"entropy"`
}

// Analyzer extracts an Analysis from recovered text
type Analyzer struct {
	combinations *CombinationAnalyzer
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{combinations: NewCombinationAnalyzer()}
}

// Analyze describes content. Empty content yields an empty analysis.
func (a *Analyzer) Analyze(content []byte) *Analysis {
	result := &Analysis{
		Size:    len(content),
		Entropy: ProfileEntropy(content),
	}
	if len(content) == 0 {
		return result
	}

	result.Lines = bytes.Count(content, []byte("\n")) + 1
	result.Functions = uniqueSubmatches(functionNameRe, content)
	result.Classes = uniqueSubmatches(classNameRe, content)
	result.Variables = topVariables(content, TopVariables)

	lower := strings.ToLower(string(content))
	result.Security = containing(lower, securityCalls)
	result.File = containing(lower, fileCalls)
	result.Network = containing(lower, networkCalls)
	result.Database = containing(lower, databaseCalls)

	for _, f := range featurePatterns {
		if f.re.Match(content) {
			result.Features = append(result.Features, f.name)
		}
	}

	result.Combinations = a.combinations.Analyze(content)
	return result
}

// uniqueSubmatches returns first capture groups in order of appearance
func uniqueSubmatches(re *regexp.Regexp, content []byte) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range re.FindAllSubmatch(content, -1) {
		name := string(m[1])
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// topVariables returns the n most used variable names, ties by name
func topVariables(content []byte, n int) []string {
	counts := make(map[string]int)
	for _, m := range variableNameRe.FindAllSubmatch(content, -1) {
		counts[string(m[1])]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func containing(lower string, needles []string) []string {
	var out []string
	for _, n := range needles {
		if strings.Contains(lower, n) {
			out = append(out, n)
		}
	}
	return out
}
