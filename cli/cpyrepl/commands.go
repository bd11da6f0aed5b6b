package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cpyrepl/board"
	"cpyrepl/wsbridge"
)

var errRemote = errors.New("program raised an exception")

func newDevicesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List transport endpoints and mark the ones that look like boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.setupLogging()
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			driver, err := board.DriverByName(cfg.Driver)
			if err != nil {
				return err
			}
			devices, err := driver.Detect()
			if err != nil {
				return err
			}

			vids := cfg.Board.VendorIDs
			if len(vids) == 0 {
				vids = board.DefaultVendorIDs
			}
			return printDevices(cmd.OutOrStdout(), devices, vids)
		},
	}
}

func printDevices(w io.Writer, devices []board.Device, vids []uint16) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tUSB ID\tSERIAL\tBOARD")
	for _, d := range devices {
		id := "-"
		if d.IsUSB {
			id = fmt.Sprintf("%04x:%04x", d.VID, d.PID)
		}
		match := ""
		if d.Matches(vids) {
			match = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Port, id, orDash(d.SerialNumber), match)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newExecCmd(opts *options) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "exec [file|-]",
		Short: "Run a file, stdin or -c code on the board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd.InOrStdin(), code, args)
			if err != nil {
				return err
			}

			session, _, err := opts.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			return runAndPrint(session, src, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&code, "code", "c", "", "program text to run")
	return cmd
}

func readSource(stdin io.Reader, code string, args []string) (string, error) {
	if code != "" {
		if len(args) > 0 {
			return "", errors.New("give either -c or a file, not both")
		}
		return code, nil
	}
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(args[0])
	return string(b), err
}

func runAndPrint(session *board.Session, src string, stdout, stderr io.Writer) error {
	res, err := session.Execute(src)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, normalizeNewlines(res.Stdout))
	fmt.Fprint(stderr, normalizeNewlines(res.Stderr))
	if res.Stderr != "" {
		return errRemote
	}
	return nil
}

// normalizeNewlines turns the board's \r\n into \n.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Soft reset the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := opts.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			if err = session.SoftReset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "soft reset complete")
			return nil
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the board session over a websocket at /ws",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, cfg, err := opts.openSession()
			if err != nil {
				return err
			}
			defer session.Close()

			if listen == "" {
				listen = cfg.Listen
			}
			logger := opts.setupLogging()
			return wsbridge.NewServer(listen, session, logger.WithName("wsbridge")).Serve()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "host:port to listen on (default from config)")
	return cmd
}
