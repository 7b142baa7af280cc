package heuristic

import (
	"regexp"
	"sort"
)

// Combination is a set of calls that together suggest the recovered
// code does something worth a closer look
type Combination struct {
	Name     string   `json:"name" yaml:"name"`
	Calls    []string `json:"calls" yaml:"calls"` // All must be present; "$_" is any request superglobal
	Severity string   `json:"severity" yaml:"severity"`
}

var riskCombinations = []Combination{
	{Name: "remote code execution", Calls: []string{"file_get_contents", "eval"}, Severity: "critical"},
	{Name: "curl code execution", Calls: []string{"curl_exec", "eval"}, Severity: "critical"},
	{Name: "user input execution", Calls: []string{"$_", "eval"}, Severity: "critical"},
	{Name: "user input system call", Calls: []string{"$_", "system"}, Severity: "critical"},
	{Name: "user input shell call", Calls: []string{"$_", "shell_exec"}, Severity: "critical"},
	{Name: "nested payload", Calls: []string{"base64_decode", "eval"}, Severity: "high"},
	{Name: "compressed payload", Calls: []string{"gzinflate", "eval"}, Severity: "high"},
	{Name: "file write from input", Calls: []string{"$_", "file_put_contents"}, Severity: "high"},
	{Name: "unserialize from input", Calls: []string{"$_", "unserialize"}, Severity: "high"},
	{Name: "sql with user input", Calls: []string{"$_", "mysqli_query"}, Severity: "high"},
	{Name: "license phone home", Calls: []string{"curl_init", "base64_encode"}, Severity: "medium"},
}

var superglobalCallRe = regexp.MustCompile(`\$_(?:GET|POST|REQUEST|COOKIE|SERVER)\s*\[`)

// CombinationAnalyzer finds risky call combinations
type CombinationAnalyzer struct {
	patterns map[string]*regexp.Regexp
}

// NewCombinationAnalyzer creates a new analyzer
func NewCombinationAnalyzer() *CombinationAnalyzer {
	ca := &CombinationAnalyzer{
		patterns: make(map[string]*regexp.Regexp),
	}
	for _, combo := range riskCombinations {
		for _, call := range combo.Calls {
			if call == "$_" || ca.patterns[call] != nil {
				continue
			}
			ca.patterns[call] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(call) + `\s*\(`)
		}
	}
	ca.patterns["$_"] = superglobalCallRe
	return ca
}

// Analyze returns the combinations fully present in content, most
// severe first
func (ca *CombinationAnalyzer) Analyze(content []byte) []Combination {
	present := make(map[string]bool, len(ca.patterns))
	for name, re := range ca.patterns {
		present[name] = re.Match(content)
	}

	var matches []Combination
	for _, combo := range riskCombinations {
		all := true
		for _, call := range combo.Calls {
			if !present[call] {
				all = false
				break
			}
		}
		if all {
			matches = append(matches, combo)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return severityRank(matches[i].Severity) < severityRank(matches[j].Severity)
	})
	return matches
}

func severityRank(s string) int {
	switch s {
	case "critical":
		return 0
	case "high":
		return 1
	case "medium":
		return 2
	default:
		return 3
	}
}
