package cmd

import (
	"fmt"
	"io"

	"ahpbridge/internal/config"
	"ahpbridge/pkg/logging"

	"github.com/spf13/cobra"
)

type configureOptions struct {
	serverType   string
	serverURL    string
	email        string
	preSharedKey string
	startSession bool
}

func newConfigureCmd(root *rootOptions) *cobra.Command {
	opts := &configureOptions{}
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Set the AHP server and credentials",
		Long: `Set the AHP server and the credentials used to obtain bearer tokens.

Only the flags given are changed; without flags the current configuration
is printed. Values from AHP_SERVER_URL, AHP_EMAIL and AHP_PRE_SHARED_KEY
override the file at runtime but are never written to it.

Examples:
  ahpbridge configure --email you@example.com --pre-shared-key <key>
  ahpbridge configure --server-url http://localhost:5000   # implies --server-type custom
  ahpbridge configure --server-type default
  ahpbridge configure --start-session       # send a server session_id with every call`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.serverType, "server-type", "", "Server type: default or custom")
	cmd.Flags().StringVar(&opts.serverURL, "server-url", "", "Custom AHP server base URL")
	cmd.Flags().StringVar(&opts.email, "email", "", "Email address identifying this agent")
	cmd.Flags().StringVar(&opts.preSharedKey, "pre-shared-key", "", "Pre-shared key issued by the AHP server")
	cmd.Flags().BoolVar(&opts.startSession, "start-session", false, "Open a server session after authentication")
	return cmd
}

func runConfigure(cmd *cobra.Command, root *rootOptions, opts *configureOptions) error {
	if err := root.initLogging(cmd); err != nil {
		return err
	}
	dir, err := root.resolveConfigDir()
	if err != nil {
		return err
	}

	settings, err := config.LoadFileSettings(dir)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	changed := false
	if flags.Changed("server-url") {
		settings.CustomServerURL = opts.serverURL
		if !flags.Changed("server-type") {
			settings.ServerType = config.ServerTypeCustom
		}
		changed = true
	}
	if flags.Changed("server-type") {
		settings.ServerType = config.ServerType(opts.serverType)
		changed = true
	}
	if flags.Changed("email") {
		settings.Email = opts.email
		changed = true
	}
	if flags.Changed("pre-shared-key") {
		settings.PreSharedKey = opts.preSharedKey
		changed = true
	}
	if flags.Changed("start-session") {
		settings.Bridge.StartSession = opts.startSession
		changed = true
	}

	out := cmd.OutOrStdout()
	if !changed {
		fmt.Fprintf(out, "Configuration file: %s\n", config.ConfigFilePath(dir))
		printSettings(out, settings)
		return nil
	}

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.SaveSettings(dir, settings); err != nil {
		return err
	}

	fmt.Fprintf(out, "Configuration saved to %s\n", config.ConfigFilePath(dir))
	printSettings(out, settings)
	return nil
}

func printSettings(w io.Writer, s config.Settings) {
	fmt.Fprintf(w, "  Server:         %s (%s)\n", valueOr(s.ServerBaseURL(), "<unset>"), s.ServerType)
	fmt.Fprintf(w, "  Email:          %s\n", valueOr(s.Email, "<unset>"))
	fmt.Fprintf(w, "  Pre-shared key: %s\n", logging.MaskSecret(s.PreSharedKey))
	if s.Bridge.StartSession {
		fmt.Fprintln(w, "  Sessions:       started after authentication")
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// resolveConfigDir returns the --config directory or the default one.
func (o *rootOptions) resolveConfigDir() (string, error) {
	if o.configDir != "" {
		return o.configDir, nil
	}
	return config.DefaultConfigDir()
}

// initLogging configures logging for commands that do not bootstrap the
// services.
func (o *rootOptions) initLogging(cmd *cobra.Command) error {
	level, ok := logging.ParseLevel(o.logLevel)
	if !ok {
		return fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", o.logLevel)
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())
	return nil
}
