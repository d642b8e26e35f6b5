package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	elastomer "github.com/iRoxx/elastomer-client"
	"github.com/iRoxx/elastomer-client/client"
	"github.com/iRoxx/elastomer-client/client/middleware"
)

var errUnavailable = errors.New("server unavailable")

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type globalFlags struct {
	url         string
	host        string
	port        int
	adapter     string
	readTimeout time.Duration
	openTimeout time.Duration
	userAgent   string
	verbose     bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:   "elastomer",
		Short: "Talk to a REST search server.",
		Long: `elastomer sends requests to a search server and prints the raw
response body. Connection settings are read from ELASTOMER_* environment
variables and may be overridden with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&gf.url, "url", "", "server URL, overrides --host and --port")
	pf.StringVar(&gf.host, "host", client.DefaultHost, "server host")
	pf.IntVar(&gf.port, "port", client.DefaultPort, "server port")
	pf.StringVar(&gf.adapter, "adapter", client.DefaultAdapter, "transport adapter (nethttp, resty)")
	pf.DurationVar(&gf.readTimeout, "read-timeout", client.DefaultReadTimeout, "per-request timeout")
	pf.DurationVar(&gf.openTimeout, "open-timeout", client.DefaultOpenTimeout, "connection timeout")
	pf.StringVar(&gf.userAgent, "user-agent", "elastomer-cli", "User-Agent header")
	pf.BoolVarP(&gf.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newAvailableCmd(&gf),
		newInfoCmd(&gf),
		newRequestCmd(&gf),
	)

	return root
}

// build applies explicitly set flags on top of the environment configuration.
func (gf *globalFlags) build(cmd *cobra.Command) (*client.Client, error) {
	level := slog.LevelWarn
	if gf.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	opts := []client.Option{
		client.WithLogger(log),
		client.WithUserAgent(gf.userAgent),
		client.WithMiddleware(middleware.RequestID()),
	}
	if gf.verbose {
		opts = append(opts, client.WithMiddleware(middleware.Logger(log)))
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		opts = append(opts, client.WithHost(gf.host))
	}
	if flags.Changed("port") {
		opts = append(opts, client.WithPort(gf.port))
	}
	if flags.Changed("url") {
		opts = append(opts, client.WithURL(gf.url))
	}
	if flags.Changed("adapter") {
		opts = append(opts, client.WithAdapter(gf.adapter, nil))
	}
	if flags.Changed("read-timeout") {
		opts = append(opts, client.WithReadTimeout(gf.readTimeout))
	}
	if flags.Changed("open-timeout") {
		opts = append(opts, client.WithOpenTimeout(gf.openTimeout))
	}

	return elastomer.NewClientFromEnv(opts...)
}

func newAvailableCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "Report whether the server answers",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := gf.build(cmd)
			if err != nil {
				return err
			}

			if !c.Available(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), color.RedString("unavailable"), c.URL())
				return errUnavailable
			}

			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("available"), c.URL())
			return nil
		},
	}
}

func newInfoCmd(gf *globalFlags) *cobra.Command {
	var versionOnly bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the server's cluster information",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := gf.build(cmd)
			if err != nil {
				return err
			}

			if versionOnly {
				v, err := c.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}

			resp, err := c.Info(cmd.Context())
			if err != nil {
				return err
			}

			return printBody(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().BoolVar(&versionOnly, "version", false, "print only the version number")

	return cmd
}

type requestFlags struct {
	body    string
	bulk    bool
	action  string
	timeout time.Duration
	headers []string
}

func newRequestCmd(gf *globalFlags) *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "request METHOD PATH [key=value...]",
		Short: "Send a request and print the response body",
		Long: `Send a request to PATH, a URI template such as "/{index}/_doc{/id}".
Each key=value argument fills a template variable, or becomes a query
parameter when the template does not name it.`,
		Example: `  elastomer request GET '/{index}/_search' index=books q=title:go
  elastomer request PUT '/{index}/_doc/{id}' index=books id=1 --body '{"title":"go"}'
  elastomer request POST /_bulk --bulk --body @actions.ndjson`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return usageError{errors.New("requires METHOD and PATH")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			verb, err := client.ParseVerb(args[0])
			if err != nil {
				return usageError{err}
			}

			params, err := parseParams(args[2:])
			if err != nil {
				return usageError{err}
			}

			reqOpts, err := rf.options(cmd)
			if err != nil {
				return err
			}

			c, err := gf.build(cmd)
			if err != nil {
				return err
			}

			resp, err := c.Request(cmd.Context(), verb, args[1], params, reqOpts...)
			if respErr, ok := errors.AsType[*client.ResponseError](err); ok {
				if printErr := printBody(cmd.OutOrStdout(), respErr.Response); printErr != nil {
					return errors.Join(err, printErr)
				}
				return err
			}
			if err != nil {
				return err
			}

			if verb == client.Head {
				fmt.Fprintln(cmd.OutOrStdout(), resp.StatusCode)
				return nil
			}

			return printBody(cmd.OutOrStdout(), resp)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&rf.body, "body", "d", "", "request body; @file reads a file, @- reads stdin")
	f.BoolVar(&rf.bulk, "bulk", false, "send the body as newline-delimited JSON")
	f.StringVar(&rf.action, "action", "", "action name used for logging")
	f.DurationVar(&rf.timeout, "timeout", 0, "timeout for this request, overrides --read-timeout")
	f.StringArrayVarP(&rf.headers, "header", "H", nil, "extra header as 'Key: value'")

	return cmd
}

func (rf *requestFlags) options(cmd *cobra.Command) ([]client.RequestOption, error) {
	var opts []client.RequestOption

	if rf.action != "" {
		opts = append(opts, client.WithAction(rf.action))
	}
	if cmd.Flags().Changed("timeout") {
		opts = append(opts, client.WithRequestTimeout(rf.timeout))
	}
	for _, h := range rf.headers {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, usageError{fmt.Errorf("malformed header %q", h)}
		}
		opts = append(opts, client.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
	}

	if !cmd.Flags().Changed("body") {
		return opts, nil
	}

	raw, err := readBody(cmd, rf.body)
	if err != nil {
		return nil, err
	}

	if rf.bulk {
		var lines []string
		for line := range strings.Lines(string(raw)) {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		return append(opts, client.WithBody(lines)), nil
	}

	return append(opts, client.WithBody(json.RawMessage(raw))), nil
}

func readBody(cmd *cobra.Command, arg string) ([]byte, error) {
	switch {
	case arg == "@-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return b, nil

	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, usageError{fmt.Errorf("reading body file: %w", err)}
		}
		return b, nil
	}

	return []byte(arg), nil
}

func parseParams(args []string) (client.Params, error) {
	if len(args) == 0 {
		return nil, nil
	}

	params := make(client.Params, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q must be key=value", arg)
		}
		params[key] = value
	}

	return params, nil
}

func printBody(w io.Writer, resp *client.Response) error {
	if resp == nil || len(resp.Raw) == 0 {
		return nil
	}

	if _, err := w.Write(resp.Raw); err != nil {
		return err
	}
	if resp.Raw[len(resp.Raw)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}

	return nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("unexpected arguments: %v", args)}
	}
	return nil
}
