// Command glide-console is an operator console for the client bridge. It
// connects through the same entry points foreign callers use.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wippyai/glide-ffi/command"
	"github.com/wippyai/glide-ffi/value"
)

type app struct {
	settings   settings
	configPath string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "glide-console",
		Short:         "Send commands to a key-value store through the glide bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(cmd.Root().PersistentFlags(), a.configPath)
			if err != nil {
				return err
			}
			a.settings = s
			return s.initLogging()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.StringP("host", "H", "localhost", "server host")
	flags.IntP("port", "p", 6379, "server port")
	flags.Bool("cluster", false, "connect in cluster mode")
	flags.Bool("tls", false, "connect over TLS")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.Bool("resp2", false, "speak RESP2 instead of RESP3")
	flags.String("username", "", "ACL user name")
	flags.String("password", "", "password")
	flags.Int("database", 0, "database index (standalone only)")
	flags.Duration("timeout", time.Second, "connect and request timeout")
	flags.String("log-level", "warn", "log level: error, warn, info, debug, trace, off")
	flags.String("log-file", "", "write logs to this file instead of stderr")

	root.AddCommand(
		newExecCmd(a),
		newCommandsCmd(),
		newShellCmd(a),
	)
	return root
}

func (a *app) target() string {
	return net.JoinHostPort(a.settings.Host, strconv.Itoa(a.settings.Port))
}

func (a *app) open(ctx context.Context) (*session, error) {
	sess, err := openSession(ctx, a.settings.clientConfig())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", a.target(), err)
	}
	return sess, nil
}

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec COMMAND [ARG...]",
		Short: "Run one command and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close()

			v, err := sess.exec(args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value.Format(v))
			return nil
		},
	}
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the known request types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listCommands(cmd.OutOrStdout())
			return nil
		},
	}
}

func listCommands(w io.Writer) {
	for _, s := range command.All() {
		fmt.Fprintf(w, "%6d  %s\n", uint32(s.Type), s)
	}
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive prompt; reads commands line by line when stdin is not a terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.close()
			return runShell(sess, a.target())
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
