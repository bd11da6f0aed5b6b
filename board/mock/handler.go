package mock

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	rePrint = regexp.MustCompile(`^print\((["'])(.*)["']\)$`)
	reRaise = regexp.MustCompile(`^raise (\w+)(?:\((["'])(.*)["']\))?$`)
)

// EchoHandler understands just enough Python to be useful in tests and demos:
// print of a string literal writes it to stdout, raise writes a traceback to
// stderr and stops. Every other line is accepted silently.
func EchoHandler(code string) (stdout, stderr string) {
	var out strings.Builder
	for i, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if m := rePrint.FindStringSubmatch(line); m != nil {
			out.WriteString(m[2])
			out.WriteString("\r\n")
			continue
		}
		if m := reRaise.FindStringSubmatch(line); m != nil {
			exc := m[1]
			if m[3] != "" {
				exc += ": " + m[3]
			}
			stderr = fmt.Sprintf("Traceback (most recent call last):\r\n  File \"<stdin>\", line %d, in <module>\r\n%s\r\n", i+1, exc)
			break
		}
	}
	return out.String(), stderr
}
