// Package shelfchatctl implements the shelfchat command line client.
package shelfchatctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	keyAPIURL  = "api_url"
	keyAPIKey  = "api_key"
	keyTimeout = "cli_timeout"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// exitError carries the process exit code for failures past argument parsing.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func failed(err error) error {
	return &exitError{code: 1, err: err}
}

// Run executes args and returns the process exit code: 0 on success, 1 when a
// request fails and 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	root := NewRootCommand(defaults)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintln(stderr, err)
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 2
}

type app struct {
	opts       Options
	v          *viper.Viper
	configFile string
	stdout     io.Writer
	stdin      io.Reader
}

func NewRootCommand(opts Options) *cobra.Command {
	a := &app{opts: opts, v: viper.New(), stdout: opts.Stdout, stdin: opts.Stdin}
	if a.stdout == nil {
		a.stdout = io.Discard
	}
	if a.stdin == nil {
		a.stdin = strings.NewReader("")
	}
	a.v.SetDefault(keyAPIURL, firstNonEmpty(opts.BaseURL, "http://localhost:8080"))
	a.v.SetDefault(keyAPIKey, opts.APIKey)
	a.v.SetDefault(keyTimeout, durationOr(opts.Timeout, 10*time.Second))
	_ = a.v.BindEnv(keyAPIURL, "SHELFCHAT_API_URL")
	_ = a.v.BindEnv(keyAPIKey, "SHELFCHAT_API_KEY")
	_ = a.v.BindEnv(keyTimeout, "SHELFCHAT_CLI_TIMEOUT")

	root := &cobra.Command{
		Use:           "shelfchatctl",
		Short:         "Ask questions about the shelfchat library from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errors.New("a command is required")
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}
	if opts.Stderr != nil {
		root.SetErr(opts.Stderr)
	}
	root.SetOut(a.stdout)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file with api_url, api_key and cli_timeout")
	flags.String("base-url", "", "shelfchat API base URL")
	flags.String("api-key", "", "API key sent as X-API-Key")
	flags.Duration("timeout", 0, "HTTP timeout (e.g. 10s)")
	_ = a.v.BindPFlag(keyAPIURL, flags.Lookup("base-url"))
	_ = a.v.BindPFlag(keyAPIKey, flags.Lookup("api-key"))
	_ = a.v.BindPFlag(keyTimeout, flags.Lookup("timeout"))

	root.AddCommand(
		a.getCommand("health", "Check API liveness", "/v1/health"),
		a.getCommand("ready", "Check API readiness", "/v1/ready"),
		a.schemaCommand(),
		a.nlpCommand(),
		a.graphqlCommand(),
		a.translateCommand(),
		a.askCommand(),
		a.transcriptsCommand(),
	)
	return root
}

func (a *app) loadConfig() error {
	if a.configFile == "" {
		return nil
	}
	a.v.SetConfigFile(a.configFile)
	if err := a.v.ReadInConfig(); err != nil {
		return failed(fmt.Errorf("read config: %w", err))
	}
	return nil
}

func (a *app) client() *client {
	httpClient := a.opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: durationOr(a.v.GetDuration(keyTimeout), 10*time.Second)}
	}
	return &client{
		baseURL: strings.TrimRight(strings.TrimSpace(a.v.GetString(keyAPIURL)), "/"),
		apiKey:  strings.TrimSpace(a.v.GetString(keyAPIKey)),
		http:    httpClient,
	}
}

func (a *app) call(cmd *cobra.Command, method, path string, body any) error {
	raw, err := a.client().do(cmd.Context(), method, path, body)
	if err != nil {
		return failed(err)
	}
	a.print(raw)
	return nil
}

func (a *app) print(raw []byte) {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(a.stdout, pretty)
		return
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(a.stdout, string(raw))
	}
}

func (a *app) getCommand(name, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd, http.MethodGet, path, nil)
		},
	}
}

func (a *app) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the GraphQL schema in SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := a.client().do(cmd.Context(), http.MethodGet, "/v1/schema", nil)
			if err != nil {
				return failed(err)
			}
			var body struct {
				SDL string `json:"sdl"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				return failed(fmt.Errorf("decode schema: %w", err))
			}
			_, _ = fmt.Fprintln(a.stdout, strings.TrimRight(body.SDL, "\n"))
			return nil
		},
	}
}

func (a *app) nlpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nlp <question>",
		Short: "Translate a question into a GraphQL query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, http.MethodPost, "/v1/nlp", map[string]string{"userQuery": strings.Join(args, " ")})
		},
	}
}

func (a *app) graphqlCommand() *cobra.Command {
	var (
		file string
		vars map[string]string
	)
	cmd := &cobra.Command{
		Use:   "graphql [query]",
		Short: "Execute a GraphQL query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := a.argOrInput(args, file)
			if err != nil {
				return err
			}
			body := map[string]any{"query": query}
			if len(vars) > 0 {
				variables := make(map[string]any, len(vars))
				for k, v := range vars {
					variables[k] = v
				}
				body["variables"] = variables
			}
			return a.call(cmd, http.MethodPost, "/v1/graphql", body)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the query from a file, - for stdin")
	cmd.Flags().StringToStringVar(&vars, "var", nil, "string variable as name=value (repeatable)")
	return cmd
}

func (a *app) translateCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "translate [graphql-response-json]",
		Short: "Describe a GraphQL response in natural language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := a.argOrInput(args, file)
			if err != nil {
				return err
			}
			if !json.Valid([]byte(input)) {
				return errors.New("response must be valid JSON")
			}
			return a.call(cmd, http.MethodPost, "/v1/translate", map[string]json.RawMessage{"response": json.RawMessage(input)})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the response from a file, - for stdin")
	return cmd
}

func (a *app) askCommand() *cobra.Command {
	var stream bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Translate, execute and describe a question in one call",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if !stream {
				return a.call(cmd, http.MethodPost, "/v1/ask", map[string]string{"question": question})
			}
			last, err := a.client().stream(cmd.Context(), question, func(_ string, raw []byte) {
				_, _ = fmt.Fprintln(a.stdout, strings.TrimSpace(string(raw)))
			})
			if err != nil {
				return failed(err)
			}
			if last == "error" {
				return failed(errors.New("question failed; see the error frame above"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "print each stage as it completes over a websocket")
	return cmd
}

func (a *app) transcriptsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Inspect archived question runs",
	}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the newest transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/v1/transcripts"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			return a.call(cmd, http.MethodGet, path, nil)
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "maximum transcripts to return (server default when 0)")
	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, http.MethodGet, "/v1/transcripts/"+url.PathEscape(args[0]), nil)
		},
	}
	cmd.AddCommand(list, get)
	return cmd
}

func (a *app) argOrInput(args []string, file string) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", errors.New("pass either an argument or --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file == "-":
		raw, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", failed(fmt.Errorf("read stdin: %w", err))
		}
		return strings.TrimSpace(string(raw)), nil
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", failed(err)
		}
		return strings.TrimSpace(string(raw)), nil
	default:
		return "", errors.New("an argument or --file is required")
	}
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
