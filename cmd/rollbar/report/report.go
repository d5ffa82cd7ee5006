package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/sthembisoo/rollbar-notifier/cmd/rollbar/payload"
	"github.com/sthembisoo/rollbar-notifier/utils/config"
	"github.com/sthembisoo/rollbar-notifier/utils/logger"
	"github.com/sthembisoo/rollbar-notifier/utils/sender"
)

var (
	flagEnvironment string
	flagLevel       string
	flagEndpoint    string
	flagToken       string
	flagCodeVersion string
	flagPersonID    string
	flagDryRun      bool

	flagRaw  string
	flagFile string

	flagBody   string
	flagFields []string

	flagMessage   string
	flagCauses    []string
	flagAggregate bool
)

func NewCmdReport() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build and send an error report to Rollbar",
		Long: `Build and send an error report to Rollbar.

Settings are read from ROLLBAR_* environment variables (ROLLBAR_ACCESS_TOKEN,
ROLLBAR_ENVIRONMENT, ROLLBAR_ENDPOINT, ROLLBAR_CODE_VERSION, ROLLBAR_TIMEOUT,
ROLLBAR_LOG_LEVEL, ROLLBAR_LOG_JSON); flags take precedence.

Examples:
  # Report raw crash output
  rollbar-notifier report crash --file ./crash.log --token YOUR_ROLLBAR_TOKEN

  # Report a message with extra fields
  rollbar-notifier report message --body "Cache warmed" --field region=eu --field entries=1200

  # Preview the payload of an error chain without sending it
  rollbar-notifier report error --message "request failed" --cause "db timeout" --dry-run`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flagEnvironment, "environment", "e", "", "Environment name (default production)")
	pf.StringVarP(&flagLevel, "level", "l", "", "Report level: critical, error, warning, info or debug")
	pf.StringVar(&flagEndpoint, "endpoint", "", "Item endpoint URL")
	pf.StringVarP(&flagToken, "token", "t", "", "Rollbar access token (or set ROLLBAR_ACCESS_TOKEN env var)")
	pf.StringVar(&flagCodeVersion, "code-version", "", "Code version of the reporting application")
	pf.StringVar(&flagPersonID, "person-id", "", "Id of the affected user")
	pf.BoolVar(&flagDryRun, "dry-run", false, "Print the report data instead of sending it")

	cmd.AddCommand(newCmdCrash(), newCmdMessage(), newCmdError())
	return cmd
}

func newCmdCrash() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crash",
		Short: "Report raw crash text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return start(cmd, buildCrashBody)
		},
	}

	cmd.Flags().StringVar(&flagRaw, "raw", "", "Raw crash text")
	cmd.Flags().StringVar(&flagFile, "file", "", "File holding the raw crash text")
	cmd.MarkFlagsMutuallyExclusive("raw", "file")
	cmd.MarkFlagsOneRequired("raw", "file")

	return cmd
}

func newCmdMessage() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Report a free-text message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return start(cmd, buildMessageBody)
		},
	}

	cmd.Flags().StringVarP(&flagBody, "body", "b", "", "Message text")
	cmd.Flags().StringArrayVarP(&flagFields, "field", "f", nil, "Extra message field as key=value; JSON values are decoded")
	_ = cmd.MarkFlagRequired("body")

	return cmd
}

func newCmdError() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "error",
		Short: "Report an error with its causes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return start(cmd, buildErrorBody)
		},
	}

	cmd.Flags().StringVarP(&flagMessage, "message", "m", "", "Error message")
	cmd.Flags().StringArrayVarP(&flagCauses, "cause", "c", nil, "Cause message, outermost first; repeatable")
	cmd.Flags().BoolVar(&flagAggregate, "aggregate", false, "Treat the message and causes as independent failures")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func start(cmd *cobra.Command, build func() (*payload.Body, error)) error {
	cfg, err := config.Load(overrides(cmd))
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: cmd.ErrOrStderr()})

	body, err := build()
	if err != nil {
		return fmt.Errorf("failed to build report body: %w", err)
	}

	data, err := payload.NewData(cfg.Environment, body)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	data.CodeVersion = cfg.CodeVersion
	if flagLevel != "" {
		if data.Level, err = payload.ParseLevel(flagLevel); err != nil {
			return err
		}
	}
	if flagPersonID != "" {
		if data.Person, err = payload.NewPerson(flagPersonID); err != nil {
			return err
		}
	}
	id := data.NewGUID()

	if flagDryRun {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	if cfg.AccessToken == "" {
		return fmt.Errorf("rollbar access token required: use --token flag or set ROLLBAR_ACCESS_TOKEN environment variable")
	}

	item, err := payload.NewItem(cfg.AccessToken, data)
	if err != nil {
		return err
	}

	log.Info("sending report", "kind", body.Kind(), "environment", data.Environment, "uuid", id)
	result, err := sender.New(cfg.Endpoint, cfg.Timeout, log).Send(cmd.Context(), item)
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report accepted: %s\n", result.UUID)
	return nil
}

// overrides maps the flags that were set to config keys
func overrides(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	for flag, key := range map[string]string{
		"environment":  "environment",
		"endpoint":     "endpoint",
		"token":        "access_token",
		"code-version": "code_version",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			out[key] = f.Value.String()
		}
	}
	return out
}

func buildCrashBody() (*payload.Body, error) {
	raw := flagRaw
	if flagFile != "" {
		content, err := os.ReadFile(flagFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read crash file: %w", err)
		}
		raw = string(content)
	}
	return payload.NewCrashReportBody(raw)
}

func buildMessageBody() (*payload.Body, error) {
	msg, err := payload.NewMessage(flagBody)
	if err != nil {
		return nil, err
	}
	for _, field := range flagFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", field)
		}
		msg.Set(key, fieldValue(value))
	}
	return payload.NewMessageBody(msg)
}

// fieldValue decodes JSON scalars and documents, keeping anything else as a
// plain string.
func fieldValue(value string) any {
	if !gjson.Valid(value) {
		return value
	}
	return gjson.Parse(value).Value()
}

func buildErrorBody() (*payload.Body, error) {
	if strings.TrimSpace(flagMessage) == "" {
		return nil, errors.New("error message must not be blank")
	}

	if flagAggregate {
		failures := lo.Map(append([]string{flagMessage}, flagCauses...), func(msg string, _ int) error {
			return goerrors.New(msg)
		})
		return payload.NewTraceChainBody(failures)
	}

	if len(flagCauses) == 0 {
		return payload.NewTraceBody(goerrors.New(flagMessage))
	}

	cause := errors.New(flagCauses[len(flagCauses)-1])
	for i := len(flagCauses) - 2; i >= 0; i-- {
		cause = fmt.Errorf("%s: %w", flagCauses[i], cause)
	}
	return payload.NewTraceBody(goerrors.Wrap(fmt.Errorf("%s: %w", flagMessage, cause), 0))
}
