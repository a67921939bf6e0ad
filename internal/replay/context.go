package replay

import "time"

// LiveFunc performs an actual reasoner call when no replay match exists.
type LiveFunc func(system, user, model string) (string, error)

// Context wires record/replay/live modes around reasoner calls, the Go
// analogue of controller/replay.py's ReplayContext context manager.
type Context struct {
	Mode             Mode
	MatchMode        MatchMode
	Secret           string
	VerifyIntegrity  bool

	recorder *ReplayRecorder
	player   *ReplayPlayer
}

// NewContext opens the recorder or player implied by mode. path is
// ignored in ModeOff (the "live" mode in the original).
func NewContext(mode Mode, path string, matchMode MatchMode, secret string, verifyIntegrity bool) (*Context, error) {
	c := &Context{Mode: mode, MatchMode: matchMode, Secret: secret, VerifyIntegrity: verifyIntegrity}
	switch mode {
	case ModeRecord:
		if path == "" {
			return c, nil
		}
		rec, err := NewReplayRecorder(path, secret, true)
		if err != nil {
			return nil, err
		}
		c.recorder = rec
	case ModeReplay:
		if path == "" {
			return c, nil
		}
		player, err := NewReplayPlayer(path, matchMode, secret, verifyIntegrity, verifyIntegrity)
		if err != nil {
			return nil, err
		}
		c.player = player
	}
	return c, nil
}

// Intercept returns the recorded response in replay mode if one
// matches, otherwise invokes live and records the result in record
// mode. In off/live mode it always invokes live.
func (c *Context) Intercept(system, user, model string, live LiveFunc) (string, error) {
	if c.Mode == ModeReplay && c.player != nil {
		if resp, ok := c.player.Get(system, user, model); ok {
			return resp, nil
		}
	}

	start := time.Now()
	resp, err := live(system, user, model)
	if err != nil {
		return "", err
	}
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	if c.Mode == ModeRecord && c.recorder != nil {
		_ = c.recorder.Record(system, user, model, resp, latencyMs, nil, nil)
	}
	return resp, nil
}
