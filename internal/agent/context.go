package agent

import "strings"

func formatTurn(t Turn) string {
	role := strings.ToLower(strings.TrimSpace(t.Role))
	switch role {
	case "user", "assistant", "tool":
	default:
		role = "user"
	}
	return strings.ToUpper(role) + ": " + t.Text
}

// BuildContext assembles the context block fed to the reasoner: a
// best-effort memory recall section, the trailing window of chat
// history, and a closing instruction line.
func BuildContext(history []Turn, userText string, mem Memory, cfg ContextConfig) string {
	var out []string

	if cfg.Recall && mem != nil {
		hits, err := mem.Search(userText, cfg.MaxMemItems)
		if err == nil && len(hits) > 0 {
			out = append(out, "MEMORY (recalled):")
			for _, h := range hits {
				if h.Key != "" {
					out = append(out, "- "+h.Key+": "+h.Value)
				} else {
					out = append(out, "- "+h.Value)
				}
			}
			out = append(out, "")
		}
	}

	turns := history
	if cfg.MaxTurns > 0 && len(turns) > cfg.MaxTurns {
		turns = turns[len(turns)-cfg.MaxTurns:]
	}
	if len(turns) > 0 {
		out = append(out, "CHAT (recent):")
		for _, t := range turns {
			out = append(out, formatTurn(t))
		}
		out = append(out, "")
	}

	out = append(out, "INSTRUCTION:", "Propose the next actions as JSON.")
	return strings.Join(out, "\n")
}
