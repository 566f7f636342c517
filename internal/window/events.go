package window

import (
	"strconv"
	"strings"
)

const (
	coordMargin  = 1000
	wheelClamp   = 1000
	snakeOilStep = 3 // bytes of keystream consumed per decoded key
)

// clampCoord saturates v into [-coordMargin, limit+coordMargin], matching
// the coordinate-clamping boundary behavior in spec.md §8.
func clampCoord(v, limit int) int {
	if v < -coordMargin {
		return -coordMargin
	}
	if v > limit+coordMargin {
		return limit + coordMargin
	}
	return v
}

func clampWheelDelta(v int) int {
	if v < -wheelClamp {
		return -wheelClamp
	}
	if v > wheelClamp {
		return wheelClamp
	}
	return v
}

// decodeKey reverses the snake-oil XOR obfuscation applied client-side to a
// raw key argument, consuming snakeOilStep bytes of keystream per call from
// w.snakeOilKey at the current w.keyStreamPos (and advancing it). This is
// purely cosmetic per spec.md §3 ("not security") and never rejects a key on
// its own; validity is checked separately by isValidKey.
func (w *Window) decodeKey(raw int) int {
	if len(w.snakeOilKey) == 0 {
		return raw
	}

	neg := raw < 0
	mag := raw
	if neg {
		mag = -mag
	}

	for i := 0; i < snakeOilStep; i++ {
		shift := uint(8 * i)
		b := byte(mag>>shift) ^ w.snakeOilKey[(w.keyStreamPos+i)%len(w.snakeOilKey)]
		mag = (mag &^ (0xff << shift)) | int(b)<<shift
	}
	w.keyStreamPos = (w.keyStreamPos + snakeOilStep) % len(w.snakeOilKey)

	if neg {
		return -mag
	}
	return mag
}

// handleEvents parses and applies the "e" query parameter: a sequence of
// "/"-terminated tokens, each implicitly numbered startIdx, startIdx+1, ...
// Tokens whose index is <= the window's current event index are skipped
// (they were already applied by an earlier, superseded request); the first
// syntactically or semantically invalid token silently aborts parsing of the
// remainder, per spec.md §4.5.
func (w *Window) handleEvents(startIdx uint64, eventStr string) {
	if eventStr == "" {
		return
	}

	tokens := strings.Split(eventStr, "/")
	// A well-formed eventStr is "/"-terminated, leaving a trailing empty
	// token; drop it if present.
	if len(tokens) > 0 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}

	maxSeen := w.curEventIdx
	sawAny := false

	for i, tok := range tokens {
		idx := startIdx + uint64(i)
		if idx <= w.curEventIdx {
			continue
		}
		if !w.applyEventToken(tok) {
			break
		}
		sawAny = true
		if idx+1 > maxSeen {
			maxSeen = idx + 1
		}
	}

	if sawAny {
		w.curEventIdx = maxSeen
	}
}

// applyEventToken parses and applies a single "NAME_ARG_ARG..." token,
// reporting false if the token is malformed or its arguments are out of
// range, which aborts the remainder of the event stream.
func (w *Window) applyEventToken(tok string) bool {
	parts := strings.Split(tok, "_")
	if len(parts) == 0 {
		return false
	}
	name := parts[0]
	args := parts[1:]

	intArgs := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return false
		}
		intArgs[i] = v
	}

	switch name {
	case "MDN", "MUP":
		if len(intArgs) != 3 {
			return false
		}
		x, y, button := intArgs[0], intArgs[1], intArgs[2]
		if button < 0 || button > 2 {
			return false
		}
		x, y = clampCoord(x, w.width), clampCoord(y, w.height)
		if name == "MDN" {
			w.mouseButtonsDown[button] = true
			w.eventHandler.OnWindowMouseDown(w.handle, x, y, button)
		} else {
			delete(w.mouseButtonsDown, button)
			w.eventHandler.OnWindowMouseUp(w.handle, x, y, button)
		}
	case "MDBL":
		if len(intArgs) != 2 {
			return false
		}
		x, y := clampCoord(intArgs[0], w.width), clampCoord(intArgs[1], w.height)
		w.eventHandler.OnWindowMouseDoubleClick(w.handle, x, y, 0)
	case "MWH":
		if len(intArgs) != 3 {
			return false
		}
		x, y := clampCoord(intArgs[0], w.width), clampCoord(intArgs[1], w.height)
		delta := clampWheelDelta(intArgs[2])
		w.eventHandler.OnWindowMouseWheel(w.handle, x, y, delta)
	case "MMO":
		if len(intArgs) != 2 {
			return false
		}
		x, y := clampCoord(intArgs[0], w.width), clampCoord(intArgs[1], w.height)
		w.eventHandler.OnWindowMouseMove(w.handle, x, y)
	case "MOUT":
		if len(intArgs) != 2 {
			return false
		}
		x, y := clampCoord(intArgs[0], w.width), clampCoord(intArgs[1], w.height)
		w.eventHandler.OnWindowMouseLeave(w.handle, x, y)
	case "KDN", "KUP", "KPR":
		if len(intArgs) != 1 {
			return false
		}
		key := w.decodeKey(intArgs[0])
		if !isValidKey(key) {
			return false
		}
		switch name {
		case "KDN":
			w.keysDown[key] = true
			w.eventHandler.OnWindowKeyDown(w.handle, key)
		case "KUP":
			delete(w.keysDown, key)
			w.eventHandler.OnWindowKeyUp(w.handle, key)
		case "KPR":
			w.eventHandler.OnWindowKeyDown(w.handle, key)
			w.eventHandler.OnWindowKeyUp(w.handle, key)
		}
	case "FOUT":
		if len(intArgs) != 0 {
			return false
		}
		w.releaseHeldInput()
		w.eventHandler.OnWindowLoseFocus(w.handle)
	default:
		return false
	}

	return true
}

// releaseHeldInput synthesizes "up" events for every button/key the client
// reported as down, used when focus or the session state is lost (spec.md
// §3's mouse_buttons_down/keys_down bookkeeping).
func (w *Window) releaseHeldInput() {
	for button := range w.mouseButtonsDown {
		w.eventHandler.OnWindowMouseUp(w.handle, 0, 0, button)
	}
	w.mouseButtonsDown = make(map[int]bool)

	for key := range w.keysDown {
		w.eventHandler.OnWindowKeyUp(w.handle, key)
	}
	w.keysDown = make(map[int]bool)
}
