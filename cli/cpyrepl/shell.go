package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/abiosoft/readline"
	"github.com/spf13/cobra"

	"cpyrepl/board"
)

const (
	shellKey      = "$shell"
	sessionKey    = "$session"
	pasteEnd      = ";;"
	replExit      = ":q"
	promptPattern = "[%s] > "
)

func newShellCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell around the board session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := opts.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			sh := newShell(session)
			sh.Println("cpyrepl: 'repl' to type code line by line, 'paste' for a block, 'help' for more")
			sh.Run()
			return nil
		},
	}
}

func newShell(session *board.Session) *ishell.Shell {
	sh := ishell.New()
	sh.Set(shellKey, sh)
	sh.Set(sessionKey, session)
	sh.SetPrompt(fmt.Sprintf(promptPattern, session.State()))
	for _, cmd := range shellCmds {
		sh.AddCmd(cmd)
	}
	sh.NotFound(func(c *ishell.Context) {
		c.Err(fmt.Errorf("unknown command; use 'repl' or 'paste' to send code"))
	})
	return sh
}

// sessionFrom gets the board session from the ishell context.
func sessionFrom(c *ishell.Context) *board.Session {
	return c.Get(sessionKey).(*board.Session)
}

func updatePrompt(c *ishell.Context) {
	sh := c.Get(shellKey).(*ishell.Shell)
	sh.SetPrompt(fmt.Sprintf(promptPattern, sessionFrom(c).State()))
}

// runCode executes code and prints both streams; board errors are reported, not fatal.
func runCode(c *ishell.Context, code string) {
	defer updatePrompt(c)
	res, err := sessionFrom(c).Execute(code)
	if err != nil {
		c.Err(err)
		return
	}
	if out := normalizeNewlines(res.Stdout); out != "" {
		c.Print(out)
	}
	if errOut := normalizeNewlines(res.Stderr); errOut != "" {
		c.Print(errOut)
	}
}

// replLoop feeds lines to run until the exit command or end of input.
// An interrupt drops the current line.
func replLoop(read func() (string, error), run func(string)) {
	for {
		line, err := read()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return
		}
		if strings.TrimSpace(line) == replExit {
			return
		}
		run(line)
	}
}

var shellCmds = []*ishell.Cmd{
	{
		Name: "repl",
		Help: "send each typed line to the board, " + replExit + " to leave",
		Func: func(c *ishell.Context) {
			c.ShowPrompt(false)
			defer c.ShowPrompt(true)
			replLoop(func() (string, error) {
				c.Print(">>> ")
				return c.ReadLineErr()
			}, func(line string) {
				runCode(c, line)
			})
		},
	},
	{
		Name: "paste",
		Help: "send a block of lines ending with " + pasteEnd,
		Func: func(c *ishell.Context) {
			c.Println("paste code, finish with " + pasteEnd)
			code := strings.TrimSpace(c.ReadMultiLines(pasteEnd))
			runCode(c, strings.TrimSuffix(code, pasteEnd))
		},
	},
	{
		Name: "connect",
		Help: "connect to the board",
		Func: func(c *ishell.Context) {
			defer updatePrompt(c)
			if err := sessionFrom(c).Connect(); err != nil {
				c.Err(err)
				return
			}
			if dev, ok := sessionFrom(c).Device(); ok {
				c.Println("connected to " + dev.DisplayName())
			}
		},
	},
	{
		Name: "reset",
		Help: "soft reset the board",
		Func: func(c *ishell.Context) {
			defer updatePrompt(c)
			if err := sessionFrom(c).SoftReset(); err != nil {
				c.Err(err)
			}
		},
	},
	{
		Name: "disconnect",
		Help: "close the connection",
		Func: func(c *ishell.Context) {
			defer updatePrompt(c)
			_ = sessionFrom(c).Close()
		},
	},
	{
		Name: "delay",
		Help: "show or set the per-line upload delay in seconds",
		Func: func(c *ishell.Context) {
			s := sessionFrom(c)
			if len(c.Args) > 0 {
				secs, err := strconv.ParseFloat(c.Args[0], 64)
				if err != nil || secs < 0 {
					c.Err(fmt.Errorf("invalid delay %q", c.Args[0]))
					return
				}
				s.SetUploadDelay(time.Duration(secs * float64(time.Second)))
			}
			c.Printf("upload delay %v\n", s.UploadDelay())
		},
	},
	{
		Name: "eval",
		Help: "print the value of an expression",
		Func: func(c *ishell.Context) {
			defer updatePrompt(c)
			v, err := sessionFrom(c).Eval(strings.Join(c.Args, " "))
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(v)
		},
	},
	{
		Name: "state",
		Help: "show the connection state",
		Func: func(c *ishell.Context) {
			c.Println(sessionFrom(c).State().String())
		},
	},
}
