package agent

import (
	"fmt"

	"github.com/dawsonblock/rfsn-kernel/internal/capability"
	"github.com/dawsonblock/rfsn-kernel/internal/gate"
	"github.com/dawsonblock/rfsn-kernel/internal/replay"
	"github.com/dawsonblock/rfsn-kernel/internal/rfsn"
)

func routerRegistry(deps Deps) *capability.Registry {
	if deps.Router == nil {
		return nil
	}
	return deps.Router.Registry()
}

func safeEmit(emit EmitFunc, eventType string, payload map[string]any) {
	if emit == nil {
		return
	}
	defer func() { recover() }()
	emit(eventType, payload)
}

func appendLedger(deps Deps, action rfsn.ProposedAction, decision rfsn.GateDecision, extra map[string]any) {
	if deps.Ledger == nil {
		return
	}
	defer func() { recover() }()
	_, _ = deps.Ledger.Append(deps.World, action, decision, extra)
}

func headString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// RunTurn executes one user turn through the full loop: build context,
// ask the reasoner for a proposal, validate and gate each action, run
// what the gate allows, and record the outcome on the ledger. It always
// returns a Result, even when the reasoner or parser fails.
func RunTurn(userText string, history []Turn, deps Deps, cfg Config) Result {
	if cfg.MaxSteps <= 0 {
		cfg = DefaultConfig()
	}
	localHistory := append([]Turn(nil), history...)

	safeEmit(deps.Emit, "turn_start", map[string]any{"user_text": userText})

	var finalMessage string
	haveFinal := false
	actionsProposed, actionsAllowed, actionsDenied, actionsReplayed := 0, 0, 0, 0
	step := 0

	for step = 0; step < cfg.MaxSteps; step++ {
		contextBlock := BuildContext(localHistory, userText, deps.Memory, cfg.ContextCfg)
		userPrompt := UserPrompt(userText, contextBlock)

		if deps.Reasoner == nil {
			return Result{
				Message:         "no reasoner configured",
				StepsTaken:      step,
				ActionsProposed: actionsProposed,
				ActionsAllowed:  actionsAllowed,
				ActionsDenied:   actionsDenied,
				ActionsReplayed: actionsReplayed,
			}
		}

		raw, err := deps.Reasoner.CompleteJSON(SystemPrompt, userPrompt)
		if err != nil {
			appendLedger(deps, rfsn.ProposedAction{
				Kind:          rfsn.KindToolCall,
				Payload:       map[string]any{"error": "reasoner_call"},
				Justification: "Reasoner call failed",
			}, rfsn.GateDecision{Allow: false, Reason: fmt.Sprintf("error:reasoner_call:%v", err)}, nil)
			return Result{
				Message:         fmt.Sprintf("reasoner call failed: %v", err),
				StepsTaken:      step,
				ActionsProposed: actionsProposed,
				ActionsAllowed:  actionsAllowed,
				ActionsDenied:   actionsDenied,
				ActionsReplayed: actionsReplayed,
			}
		}

		safeEmit(deps.Emit, "llm_raw", map[string]any{"step": step, "raw_head": headString(raw, 1000)})

		actions, err := ParseLLMJSON(raw)
		if err != nil {
			appendLedger(deps, rfsn.ProposedAction{
				Kind:          rfsn.KindMessageSend,
				Payload:       map[string]any{"message": "LLM_JSON_PARSE_ERROR"},
				Justification: "Parse failed",
			}, rfsn.GateDecision{Allow: false, Reason: "deny:llm_json_parse_error"}, map[string]any{
				"error":    err.Error(),
				"raw_head": headString(raw, 500),
			})
			return Result{
				Message:         "I couldn't parse the model output. Try a simpler request.",
				StepsTaken:      step + 1,
				ActionsProposed: actionsProposed,
				ActionsAllowed:  actionsAllowed,
				ActionsDenied:   actionsDenied,
				ActionsReplayed: actionsReplayed,
			}
		}

		safeEmit(deps.Emit, "proposal_parsed", map[string]any{"step": step, "num_actions": len(actions)})

		registry := routerRegistry(deps)

		for _, action := range actions {
			actionsProposed++

			if action.Justification == "" {
				action.Justification = fmt.Sprintf("Auto: %s", action.Kind)
			}

			validation := ValidateToolCall(registry, action)
			if !validation.OK {
				safeEmit(deps.Emit, "deny", map[string]any{
					"step":   step,
					"reason": "tool_args_invalid",
					"error":  validation.Error,
					"action": map[string]any{"kind": string(action.Kind)},
				})
				appendLedger(deps, action, rfsn.GateDecision{Allow: false, Reason: "deny:tool_args_invalid"}, map[string]any{
					"error": validation.Error,
					"step":  step,
				})
				localHistory = append(localHistory, Turn{Role: "tool", Text: "tool_args_invalid: " + validation.Error})
				actionsDenied++
				continue
			}

			decision := gate.Gate(deps.World, action, deps.Policy)
			safeEmit(deps.Emit, "gate_decision", map[string]any{
				"step":    step,
				"allowed": decision.Allow,
				"reason":  decision.Reason,
				"action":  map[string]any{"kind": string(action.Kind), "payload": action.Payload},
			})
			appendLedger(deps, action, decision, map[string]any{"reason": decision.Reason, "step": step})
			safeEmit(deps.Emit, "ledger_append", map[string]any{"step": step, "decision": decision.Allow})

			if !decision.Allow {
				actionsDenied++
				continue
			}
			actionsAllowed++

			if action.Kind == rfsn.KindToolCall && deps.Replay != nil && deps.Replay.Mode() == replay.ModeReplay {
				actionID := replay.ActionKey(string(action.Kind), action.Payload)
				if rec, ok := deps.Replay.Get(actionID); ok {
					safeEmit(deps.Emit, "replay_hit", map[string]any{
						"step": step, "tool": rec.Tool, "action_id": actionID, "ok": rec.OK, "summary": rec.Summary,
					})
					appendLedger(deps, rfsn.ProposedAction{
						Kind:          rfsn.KindToolCall,
						Payload:       map[string]any{"kind": string(action.Kind), "replayed": true},
						Justification: "Replay",
					}, rfsn.GateDecision{Allow: true, Reason: "info:tool_result_replay"}, map[string]any{
						"ok": rec.OK, "summary": rec.Summary, "action_id": actionID, "step": step,
					})
					localHistory = append(localHistory, Turn{Role: "tool", Text: fmt.Sprintf("%s (replay): %s", rec.Tool, rec.Summary)})
					actionsReplayed++
					continue
				}
				safeEmit(deps.Emit, "replay_miss", map[string]any{"step": step, "action_id": actionID})
			}

			switch action.Kind {
			case rfsn.KindMessageSend:
				payload, _ := action.Payload.(map[string]any)
				msg, _ := payload["message"].(string)
				finalMessage = msg
				haveFinal = true
				localHistory = append(localHistory, Turn{Role: "assistant", Text: msg})

			case rfsn.KindToolCall:
				payload, _ := action.Payload.(map[string]any)
				tool, _ := payload["tool"].(string)
				args, _ := payload["arguments"].(map[string]any)
				if args == nil {
					args, _ = payload["args"].(map[string]any)
				}
				if args == nil {
					args = map[string]any{}
				}
				safeEmit(deps.Emit, "tool_call", map[string]any{"step": step, "tool": tool, "arguments": args})

				var result struct {
					ok      bool
					summary string
					data    map[string]any
				}
				if deps.Router == nil {
					result.ok = false
					result.summary = "ERROR: no router configured"
				} else {
					r := deps.Router.Route(deps.ExecCtx, tool, args)
					result.ok = r.Success
					if r.Success {
						result.summary = fmt.Sprintf("%v", r.Output)
						if m, ok := r.Output.(map[string]any); ok {
							result.data = m
						}
					} else {
						result.summary = "ERROR: " + r.Error
					}
				}

				safeEmit(deps.Emit, "tool_result", map[string]any{
					"step": step, "tool": tool, "ok": result.ok, "summary": headString(result.summary, 500),
				})

				if deps.Replay != nil && deps.Replay.Mode() == replay.ModeRecord {
					actionID := replay.ActionKey(string(action.Kind), action.Payload)
					_ = deps.Replay.Put(replay.ToolRecord{
						ActionID: actionID,
						Tool:     tool,
						Args:     args,
						OK:       result.ok,
						Summary:  headString(result.summary, 500),
						Data:     result.data,
					})
				}

				appendLedger(deps, rfsn.ProposedAction{
					Kind:          rfsn.KindToolCall,
					Payload:       map[string]any{"tool": tool},
					Justification: "Tool executed",
				}, rfsn.GateDecision{Allow: result.ok, Reason: "info:tool_result"}, map[string]any{
					"ok": result.ok, "summary": headString(result.summary, 500), "step": step,
				})

				localHistory = append(localHistory, Turn{Role: "tool", Text: fmt.Sprintf("%s: %s", tool, headString(result.summary, 200))})

			case rfsn.KindMemoryWrite:
				payload, _ := action.Payload.(map[string]any)
				key, _ := payload["key"].(string)
				value, _ := payload["value"].(string)
				if deps.Memory != nil {
					if err := deps.Memory.Store(key, value); err != nil {
						localHistory = append(localHistory, Turn{Role: "tool", Text: fmt.Sprintf("memory_write: ERROR - %v", err)})
					} else {
						localHistory = append(localHistory, Turn{Role: "tool", Text: fmt.Sprintf("memory_write: stored '%s'", key)})
					}
				} else {
					localHistory = append(localHistory, Turn{Role: "tool", Text: "memory_write: no memory store available"})
				}

			case rfsn.KindPermissionReq:
				payload, _ := action.Payload.(map[string]any)
				req, _ := payload["request"].(string)
				why, _ := payload["why"].(string)
				finalMessage = fmt.Sprintf("I need permission: %s\n\nReason: %s", req, why)
				haveFinal = true
				localHistory = append(localHistory, Turn{Role: "assistant", Text: finalMessage})
			}
		}

		if haveFinal {
			break
		}
	}

	if !haveFinal {
		finalMessage = "I couldn't complete that request. Try asking for something specific."
	}

	safeEmit(deps.Emit, "turn_end", map[string]any{"final_message": finalMessage})

	stepsTaken := step + 1
	if step >= cfg.MaxSteps {
		stepsTaken = cfg.MaxSteps
	}

	return Result{
		Message:         finalMessage,
		StepsTaken:      stepsTaken,
		ActionsProposed: actionsProposed,
		ActionsAllowed:  actionsAllowed,
		ActionsDenied:   actionsDenied,
		ActionsReplayed: actionsReplayed,
	}
}
