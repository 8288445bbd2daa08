package main

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	tempmail "github.com/Dimuthnilanjana/email-alias-generator"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/config"
)

// Streams holds the command's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// DefaultStreams returns the process streams.
func DefaultStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// syncWriter serializes writes from event callbacks and the command loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func newRootCmd(streams Streams) *cobra.Command {
	root := &cobra.Command{
		Use:           "tempmail",
		Short:         "Disposable inboxes and email aliases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML config file")
	flags.String("env-file", "", "dotenv file (default .env when present)")
	flags.String("base-url", tempmail.DefaultBaseURL, "mail provider API URL")
	flags.String("domain", "", "mailbox domain (default: first public provider domain)")
	flags.Duration("session-ttl", tempmail.DefaultSessionTTL, "session lifetime")
	flags.Duration("poll-interval", tempmail.DefaultPollInterval, "auto-refresh interval")
	flags.Duration("request-timeout", tempmail.DefaultTimeout, "timeout per provider request")
	flags.Bool("auto-refresh", true, "poll the inbox automatically")
	flags.Float64("rate-limit", tempmail.DefaultRateLimit, "max provider requests per second, 0 to disable")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-format", "text", "text or json")
	flags.String("user-agent", tempmail.DefaultUserAgent, "User-Agent sent to the provider")

	root.AddCommand(newInboxCmd(streams), newAliasesCmd(streams))
	return root
}

// loadConfig resolves configuration for cmd from its flags, the config
// file and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(config.LoadOptions{
		ConfigFile: configFile,
		EnvFile:    envFile,
		Flags:      cmd.Flags(),
	})
}

func formatRemaining(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
