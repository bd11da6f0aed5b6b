package main

import (
	"io"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"cpyrepl/board"
	"cpyrepl/config"
	"cpyrepl/util"
	"cpyrepl/util/env"

	// include these board drivers:
	_ "cpyrepl/board/mock"
	_ "cpyrepl/board/serialport"
)

// EnvLogVerbosity sets the log verbosity when -v is not given.
const EnvLogVerbosity = "CPYREPL_LOG_VERBOSITY"

type options struct {
	configPath string
	driver     string
	port       string
	verbosity  int
	noLogFile  bool

	logger *logr.Logger
}

func main() {
	defer func() {
		if err := recover(); err != nil {
			util.LogPanic(err)
			os.Exit(2)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "cpyrepl",
		Short:         "Run code on a CircuitPython board over its raw REPL",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (default $"+config.EnvConfig+")")
	flags.StringVar(&opts.driver, "driver", "", "board driver: "+joinDrivers())
	flags.StringVar(&opts.port, "port", "", "use this serial port instead of detecting one by vendor id")
	flags.IntVarP(&opts.verbosity, "verbose", "v", 0, "log verbosity (1 protocol steps, 2 raw bytes)")
	flags.BoolVar(&opts.noLogFile, "no-log-file", false, "do not write a log file to the temp dir")

	root.AddCommand(
		newDevicesCmd(opts),
		newExecCmd(opts),
		newResetCmd(opts),
		newShellCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func joinDrivers() string {
	s := ""
	for i, name := range board.Drivers() {
		if i > 0 {
			s += ", "
		}
		s += name
	}
	return s
}

// setupLogging wires the standard logger to the console and a log file and
// returns a logr view of it. Only the first call has any effect.
func (o *options) setupLogging() logr.Logger {
	if o.logger != nil {
		return *o.logger
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)

	if o.verbosity <= 0 {
		o.verbosity = env.IntOrDefault(EnvLogVerbosity, 0)
	}

	var console io.Writer = io.Discard
	if o.verbosity > 0 {
		console = os.Stderr
	}

	if o.noLogFile {
		log.SetOutput(console)
	} else if f, err := util.OpenLogFile("cpyrepl"); err == nil {
		l := util.NewPanicSafeLogger(f, console)
		log.SetOutput(l)
		log.Printf("logging to '%s'\n", l.Path())
	} else {
		log.SetOutput(console)
		log.Printf("could not open log file: %v\n", err)
	}

	stdr.SetVerbosity(o.verbosity)
	logger := stdr.New(log.Default())
	o.logger = &logger
	return logger
}

func (o *options) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.driver != "" {
		cfg.Driver = o.driver
	}
	if o.port != "" {
		cfg.Board.Port = o.port
	}
	return cfg, nil
}

// openSession builds a session from config and flags. It does not connect.
func (o *options) openSession() (*board.Session, config.Config, error) {
	logger := o.setupLogging()

	cfg, err := o.load()
	if err != nil {
		return nil, cfg, err
	}

	driver, err := board.DriverByName(cfg.Driver)
	if err != nil {
		return nil, cfg, err
	}

	return board.NewSession(driver, cfg.Board, logger.WithName("cpyrepl")), cfg, nil
}
