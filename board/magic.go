package board

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// directive is a line prefix handled on the host instead of being sent to the board.
type directive struct {
	prefix string
	run    func(e *engine, arg string) error
}

var directives = []directive{
	{prefix: "%softreset", run: (*engine).softResetDirective},
	{prefix: "%upload_delay", run: (*engine).uploadDelayDirective},
}

// IsDirective reports whether line would be intercepted by Execute.
func IsDirective(line string) bool {
	_, ok := matchDirective(line)
	return ok
}

func matchDirective(line string) (directive, bool) {
	for _, d := range directives {
		if strings.HasPrefix(line, d.prefix) {
			return d, true
		}
	}
	return directive{}, false
}

func (e *engine) runDirective(line string) (bool, error) {
	d, ok := matchDirective(line)
	if !ok {
		return false, nil
	}
	e.log.V(1).Info("directive", "line", line)
	return true, d.run(e, strings.TrimSpace(line[len(d.prefix):]))
}

func (e *engine) softResetDirective(_ string) error {
	return e.SoftReset()
}

// uploadDelayDirective sets the per-line delay from a number of seconds.
// Arguments that do not parse are ignored.
func (e *engine) uploadDelayDirective(arg string) error {
	secs, err := strconv.ParseFloat(arg, 64)
	if err != nil || secs < 0 || math.IsInf(secs, 0) || math.IsNaN(secs) {
		e.log.Info("ignoring invalid upload delay", "arg", arg)
		return nil
	}
	e.cfg.UploadDelay = time.Duration(secs * float64(time.Second))
	e.log.V(1).Info("upload delay set", "delay", e.cfg.UploadDelay.String())
	return nil
}
