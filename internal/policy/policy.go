// Package policy defines the frozen, data-only rules the gate and
// capability router enforce: which tools may run, which paths and domains
// are reachable, and what counts as a secret leaking through egress.
package policy

import (
	"regexp"
	"strings"
)

// ToolPolicy holds a per-tool override. Most tools use the registry's own
// budget/permission instead; this exists for the rare tool that needs a
// policy-level exception.
type ToolPolicy struct {
	Name           string
	AllowOverride  *bool
	MaxBytesOverride *int
}

// Policy is a frozen set of rules. Construct with one of the canned
// Default/Dev policies; never mutate a Policy in place, since the
// gate assumes the same Policy value yields the same decision forever.
type Policy struct {
	AllowedTools           map[string]struct{}
	ToolPolicies           map[string]ToolPolicy
	AllowedPathPrefixes    []string
	BlockedPathPatterns    []*regexp.Regexp
	AllowedDomains         map[string]struct{}
	BlockedEgressPatterns  []*regexp.Regexp
	MaxPayloadBytes        int
	MaxActionsPerSession   int
	ElevationRequiresApproval bool
	MinJustificationLen    int
	AllowCommands          bool
	BlockedCommandPrefixes []string
	RequireCleanTestsForPatch bool
	MaxPatchBytes          int
}

func mustCompileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile("(?i)"+p))
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// Default is the restrictive policy a production session runs under.
// Mirrors rfsn's AgentPolicy defaults.
func Default() Policy {
	return Policy{
		AllowedTools: toSet([]string{
			"read_file", "list_dir", "search_files",
			"memory_store", "memory_retrieve", "message_send",
		}),
		ToolPolicies:        map[string]ToolPolicy{},
		AllowedPathPrefixes: []string{"/tmp/", "./"},
		BlockedPathPatterns: mustCompileAll([]string{
			`.*\.env$`,
			`.*\.ssh/.*`,
			`.*\.aws/.*`,
			`.*/\.git/.*`,
			`.*secrets.*`,
			`.*password.*`,
		}),
		AllowedDomains: toSet([]string{
			"api.openai.com", "api.anthropic.com", "www.google.com", "github.com",
		}),
		BlockedEgressPatterns: mustCompileAll([]string{
			`sk-[a-zA-Z0-9]{20,}`,
			`AKIA[0-9A-Z]{16}`,
			`ghp_[a-zA-Z0-9]{36}`,
			`[\w.+-]+@[\w-]+\.[\w.-]+`,
		}),
		MaxPayloadBytes:           100_000,
		MaxActionsPerSession:      1000,
		ElevationRequiresApproval: true,
		MinJustificationLen:       8,
		AllowCommands:             false,
		BlockedCommandPrefixes:    []string{"rm ", "sudo ", "curl ", "wget ", "powershell", "invoke-"},
		RequireCleanTestsForPatch: true,
		MaxPatchBytes:             500_000,
	}
}

// Dev is the permissive policy used for local iteration: broader tool
// allowlist, host paths, no elevation approval required, and no domain
// restriction.
func Dev() Policy {
	p := Default()
	p.AllowedTools = toSet([]string{
		"read_file", "write_file", "list_dir", "search_files",
		"memory_store", "memory_retrieve", "memory_search", "memory_delete",
		"fetch_url", "search_web", "shell_command", "sandbox_exec",
		"grep_files", "apply_diff", "get_symbols", "think", "plan", "ask_user",
	})
	p.AllowedPathPrefixes = []string{"/tmp/", "./", "/Users/", "/home/"}
	p.AllowedDomains = map[string]struct{}{} // empty = allow all
	p.ElevationRequiresApproval = false
	p.MinJustificationLen = 5
	p.AllowCommands = true
	return p
}

// IsToolAllowed reports whether tool is in the allowlist.
func (p Policy) IsToolAllowed(tool string) bool {
	_, ok := p.AllowedTools[tool]
	return ok
}

// CheckPath enforces the blocked-pattern-first, then-allowed-prefix rule:
// a path matching any blocked pattern is always rejected, even if it also
// matches an allowed prefix.
func (p Policy) CheckPath(path string) (bool, string) {
	for _, re := range p.BlockedPathPatterns {
		if re.MatchString(path) {
			return false, "path matches blocked pattern: " + re.String()
		}
	}
	for _, prefix := range p.AllowedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true, ""
		}
	}
	return false, "path not under any allowed prefix"
}

// CheckDomain allows everything when the allow-set is empty (Dev policy),
// otherwise requires an exact match.
func (p Policy) CheckDomain(domain string) (bool, string) {
	if len(p.AllowedDomains) == 0 {
		return true, ""
	}
	if _, ok := p.AllowedDomains[domain]; ok {
		return true, ""
	}
	return false, "domain not in allowlist: " + domain
}

// CheckEgress scans content for any blocked egress pattern (API keys,
// PII, etc.) and reports the first match found.
func (p Policy) CheckEgress(content string) (bool, string) {
	for _, re := range p.BlockedEgressPatterns {
		if re.MatchString(content) {
			return false, "content matches blocked egress pattern"
		}
	}
	return true, ""
}

// GetToolPolicy returns the per-tool override for name, if any.
func (p Policy) GetToolPolicy(name string) (ToolPolicy, bool) {
	tp, ok := p.ToolPolicies[name]
	return tp, ok
}
