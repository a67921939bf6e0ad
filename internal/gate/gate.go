// Package gate implements the pure proposal gate: given a snapshot, a
// proposed action, and a policy, it renders an allow/deny decision with
// no I/O, no clock, and no mutation of its inputs. The same three inputs
// always produce the same decision.
package gate

import (
	"net/url"
	"strings"

	"github.com/dawsonblock/rfsn-kernel/internal/policy"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

func deny(reason string) rfsn.GateDecision {
	return rfsn.GateDecision{Allow: false, Reason: reason}
}

func allow(reason string) rfsn.GateDecision {
	return rfsn.GateDecision{Allow: true, Reason: reason}
}

// Gate renders a decision for action given snapshot and pol. It never
// performs I/O and never mutates action or snapshot.
func Gate(snapshot rfsn.Snapshot, action rfsn.ProposedAction, pol policy.Policy) rfsn.GateDecision {
	minLen := pol.MinJustificationLen
	if minLen <= 0 {
		minLen = 8
	}
	if len(action.Justification) < minLen {
		return deny("justification too short")
	}

	switch action.Kind {
	case rfsn.KindPatchPlan:
		return allow("patch plans are always allowed")

	case rfsn.KindPatch:
		return gatePatch(snapshot, action, pol)

	case rfsn.KindCommand:
		return gateCommand(action, pol)

	case rfsn.KindToolCall:
		return gateToolCall(action, pol)

	case rfsn.KindMemoryWrite:
		return gateMemoryWrite(action, pol)

	case rfsn.KindMessageSend:
		return allow("message_send is always allowed")

	case rfsn.KindPermissionReq:
		return gatePermissionRequest(pol)

	default:
		return deny("unknown action kind: " + string(action.Kind))
	}
}

// testsPassed extracts the tests_passed flag carried by either snapshot
// kind, since both a StateSnapshot (SWE-bench-style) and a WorldSnapshot
// (agent-world) can be the snapshot a patch action is gated against in
// this kernel. Unknown snapshot types report false: require_clean_tests_
// for_patch must deny, not silently allow, when the signal is absent.
func testsPassed(snapshot rfsn.Snapshot) bool {
	switch s := snapshot.(type) {
	case rfsn.StateSnapshot:
		return s.TestsPassed
	case rfsn.WorldSnapshot:
		return s.TestsPassed
	default:
		return false
	}
}

func gatePatch(snapshot rfsn.Snapshot, action rfsn.ProposedAction, pol policy.Policy) rfsn.GateDecision {
	if pol.RequireCleanTestsForPatch && !testsPassed(snapshot) {
		return deny("patch rejected: tests not passing")
	}
	text, ok := action.Payload.(string)
	if !ok {
		return deny("patch payload must be a string")
	}
	if len(text) > pol.MaxPatchBytes {
		return deny("patch exceeds max_patch_bytes")
	}
	normalized := normalizePatch(text)
	na := action
	na.Payload = normalized
	return rfsn.GateDecision{Allow: true, Reason: "patch accepted", NormalizedAction: &na}
}

// GatePatchWithState mirrors rfsn/gate.py's handling of
// require_clean_tests_for_patch against a StateSnapshot's tests_passed
// flag. Equivalent to calling Gate with a StateSnapshot, including its
// action-kind switch; kept as a named entry point for callers that only
// have a StateSnapshot on hand.
func GatePatchWithState(state rfsn.StateSnapshot, action rfsn.ProposedAction, pol policy.Policy) rfsn.GateDecision {
	return Gate(state, action, pol)
}

func normalizePatch(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
}

func gateCommand(action rfsn.ProposedAction, pol policy.Policy) rfsn.GateDecision {
	if !pol.AllowCommands {
		return deny("commands are not allowed by policy")
	}
	text, ok := action.Payload.(string)
	if !ok {
		return deny("command payload must be a string")
	}
	for _, prefix := range pol.BlockedCommandPrefixes {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), prefix) {
			return deny("command matches blocked prefix: " + prefix)
		}
	}
	return allow("command accepted")
}

func payloadMap(action rfsn.ProposedAction) (map[string]any, bool) {
	m, ok := action.Payload.(map[string]any)
	return m, ok
}

func gateToolCall(action rfsn.ProposedAction, pol policy.Policy) rfsn.GateDecision {
	payload, ok := payloadMap(action)
	if !ok {
		return deny("tool_call payload must be an object")
	}
	tool, _ := payload["tool"].(string)
	if tool == "" {
		return deny("tool_call missing tool name")
	}
	if !pol.IsToolAllowed(tool) {
		return deny("tool not allowed by policy: " + tool)
	}

	args, _ := payload["arguments"].(map[string]any)

	switch tool {
	case "read_file", "write_file", "list_dir", "search_files", "grep_files", "apply_diff", "get_symbols":
		pathArg := firstString(args, "path", "directory")
		if pathArg != "" {
			if ok, reason := pol.CheckPath(pathArg); !ok {
				return deny(reason)
			}
		}
	case "fetch_url":
		rawURL, _ := args["url"].(string)
		if rawURL != "" {
			u, err := url.Parse(rawURL)
			if err != nil {
				return deny("invalid url")
			}
			if ok, reason := pol.CheckDomain(u.Hostname()); !ok {
				return deny(reason)
			}
		}
	}

	if content, ok := args["content"].(string); ok {
		if allowed, reason := pol.CheckEgress(content); !allowed {
			return deny(reason)
		}
	}
	if value, ok := args["value"].(string); ok {
		if allowed, reason := pol.CheckEgress(value); !allowed {
			return deny(reason)
		}
	}

	return allow("tool_call accepted")
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func gateMemoryWrite(action rfsn.ProposedAction, pol policy.Policy) rfsn.GateDecision {
	payload, ok := payloadMap(action)
	if !ok {
		return deny("memory_write payload must be an object")
	}
	if value, ok := payload["value"].(string); ok {
		if allowed, reason := pol.CheckEgress(value); !allowed {
			return deny(reason)
		}
		if len(value) > pol.MaxPayloadBytes {
			return deny("memory_write payload exceeds max_payload_bytes")
		}
	}
	return allow("memory_write accepted")
}

func gatePermissionRequest(pol policy.Policy) rfsn.GateDecision {
	if pol.ElevationRequiresApproval {
		return deny("elevation requires explicit approval")
	}
	return allow("elevation auto-approved by policy")
}
