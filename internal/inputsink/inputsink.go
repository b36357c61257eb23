// Package inputsink defines the InputSink capability boundary: synthetic
// mouse/keyboard injection, modeled on the teacher's desktop.InputHandler
// interface. Actual OS input injection is outside this repository's
// scope; Sink is the seam a platform backend plugs into.
package inputsink

// Sink applies input effects to the local desktop. Coordinates are in
// server-monitor pixels, already resolved by the caller.
type Sink interface {
	MouseMove(x, y int) error
	MouseClick(x, y int, button string) error
	MouseDown(x, y int, button string) error
	MouseUp(x, y int, button string) error
	MouseScroll(dx, dy int) error
	KeyPress(key string) error
	KeyRelease(key string) error
}

// Recorded is a Sink that only records the calls it received, used by
// tests and as a default when no platform backend is wired in.
type Recorded struct {
	Calls []Call
}

// Call captures one Sink invocation for assertions in tests.
type Call struct {
	Method      string
	X, Y        int
	Button, Key string
	DX, DY      int
}

func (r *Recorded) MouseMove(x, y int) error {
	r.Calls = append(r.Calls, Call{Method: "move", X: x, Y: y})
	return nil
}

func (r *Recorded) MouseClick(x, y int, button string) error {
	r.Calls = append(r.Calls, Call{Method: "click", X: x, Y: y, Button: button})
	return nil
}

func (r *Recorded) MouseDown(x, y int, button string) error {
	r.Calls = append(r.Calls, Call{Method: "down", X: x, Y: y, Button: button})
	return nil
}

func (r *Recorded) MouseUp(x, y int, button string) error {
	r.Calls = append(r.Calls, Call{Method: "up", X: x, Y: y, Button: button})
	return nil
}

func (r *Recorded) MouseScroll(dx, dy int) error {
	r.Calls = append(r.Calls, Call{Method: "scroll", DX: dx, DY: dy})
	return nil
}

func (r *Recorded) KeyPress(key string) error {
	r.Calls = append(r.Calls, Call{Method: "key_press", Key: key})
	return nil
}

func (r *Recorded) KeyRelease(key string) error {
	r.Calls = append(r.Calls, Call{Method: "key_release", Key: key})
	return nil
}
