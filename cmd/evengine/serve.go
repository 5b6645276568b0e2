package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Comcast/eventengine/sio"

	"github.com/spf13/cobra"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions

	IO string

	// Stdio
	ShellExpand  bool
	Timestamps   bool
	EchoInput    bool
	Tags         bool
	PrintResults bool
	PrintConfig  bool

	// MQTT, which follows mosquitto_sub.
	MQTT      sio.MQTTConfig
	KeepAlive int
	WillQoS   int

	// WebSocket
	URL string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{
		RootOptions: rootOpts,
		MQTT:        *sio.DefaultMQTTConfig(),
	}

	cmd := &cobra.Command{
		Use:   "serve <engine>",
		Short: "Couple an engine to stdio, MQTT, or a WebSocket",
		Long: `Couple an engine to an event source and sink.

With --io std, each input line is a JSON event, and emitted events are
written as JSON lines.  With --io mq, messages on the subscribed topics
are events, and emitted events are published to their "topic" property
(or the default topic).  With --io ws, messages from the WebSocket
server are events, and emitted events are sent back.

Example:
  evengine serve orders.yaml < orders.jsonl
  evengine serve --io mq --mq-topics 'orders:1' orders.yaml
  evengine serve --io ws --url ws://localhost:8080/events orders.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, opts, args[0])
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.IO, "io", "std", `IO protocol: "std", "mq", or "ws"`)

	fs.BoolVar(&opts.ShellExpand, "sh", false, "expand <<shell commands>> in input (std)")
	fs.BoolVar(&opts.Timestamps, "timestamps", false, "timestamp output lines (std)")
	fs.BoolVar(&opts.EchoInput, "echo", false, "echo input lines (std)")
	fs.BoolVar(&opts.Tags, "tags", false, "tag output lines (std)")
	fs.BoolVar(&opts.PrintResults, "results", false, "print whether each event was consumed (std)")
	fs.BoolVar(&opts.PrintConfig, "config", false, "print the configuration after each event (std)")

	fs.StringVar(&opts.MQTT.Broker, "mq-host", opts.MQTT.Broker, "broker hostname")
	fs.IntVar(&opts.MQTT.Port, "mq-port", opts.MQTT.Port, "broker port")
	fs.StringVar(&opts.MQTT.ClientId, "mq-id", "", "client id (default: random)")
	fs.IntVar(&opts.KeepAlive, "mq-keepalive", 10, "keep-alive in seconds")
	fs.StringVar(&opts.MQTT.Username, "mq-user", "", "username")
	fs.StringVar(&opts.MQTT.Password, "mq-password", "", "password")
	fs.StringVar(&opts.MQTT.WillTopic, "mq-will-topic", "", "optional will topic")
	fs.StringVar(&opts.MQTT.WillPayload, "mq-will-payload", "", "optional will message")
	fs.IntVar(&opts.WillQoS, "mq-will-qos", 0, "optional will QoS")
	fs.BoolVar(&opts.MQTT.WillRetain, "mq-will-retain", false, "optional will retention")
	fs.BoolVar(&opts.MQTT.Reconnect, "mq-reconnect", false, "automatically attempt to reconnect")
	fs.BoolVar(&opts.MQTT.Clean, "mq-clean", true, "clean session")
	fs.UintVar(&opts.MQTT.Quiesce, "mq-quiesce", opts.MQTT.Quiesce, "disconnection quiescence (in milliseconds)")
	fs.StringVar(&opts.MQTT.CertFilename, "mq-cert", "", "optional cert filename")
	fs.StringVar(&opts.MQTT.KeyFilename, "mq-key", "", "optional key filename")
	fs.StringVar(&opts.MQTT.CAFilename, "mq-cafile", "", "optional CA cert filename")
	fs.BoolVar(&opts.MQTT.Insecure, "mq-insecure", false, "skip broker cert checking")
	fs.StringVar(&opts.MQTT.SubTopics, "mq-topics", "", "subscription topic(s) as TOPIC[:QOS],...")
	fs.BoolVar(&opts.MQTT.InjectTopic, "mq-inject-topic", opts.MQTT.InjectTopic, "put topic in map of incoming messages")
	fs.StringVar(&opts.MQTT.DefaultOutboundTopic, "mq-out-topic", opts.MQTT.DefaultOutboundTopic, "default out-bound message topic")
	fs.DurationVar(&opts.MQTT.InTimeout, "mq-in-timeout", opts.MQTT.InTimeout, "timeout for in-bound queuing")

	fs.StringVar(&opts.URL, "url", "ws://localhost:8080", "WebSocket server URL")

	return cmd
}

// couplings makes the Couplings that --io names.
func (opts *ServeOptions) couplings(cmd *cobra.Command) (sio.Couplings, error) {
	switch opts.IO {
	case "std":
		s := sio.NewStdio(opts.ShellExpand)
		s.In = cmd.InOrStdin()
		s.Out = cmd.OutOrStdout()
		s.Timestamps = opts.Timestamps
		s.EchoInput = opts.EchoInput
		s.Tags = opts.Tags
		s.PadTags = opts.Tags
		s.PrintResults = opts.PrintResults
		s.PrintConfiguration = opts.PrintConfig
		return s, nil
	case "mq", "mqtt":
		cfg := opts.MQTT
		cfg.KeepAlive = time.Duration(opts.KeepAlive) * time.Second
		cfg.WillQoS = byte(opts.WillQoS)
		c, err := sio.NewMQTT(&cfg)
		if err != nil {
			return nil, err
		}
		c.Verbose = opts.Verbose
		return c, nil
	case "ws":
		c := sio.NewWebSocket(opts.URL)
		c.Verbose = opts.Verbose
		return c, nil
	}
	return nil, fmt.Errorf("unknown io: '%s'", opts.IO)
}

func serve(cmd *cobra.Command, opts *ServeOptions, filename string) error {
	e, err := loadEngine(filename)
	if err != nil {
		return err
	}

	c, err := opts.couplings(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad couplings", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err = sio.Run(ctx, e, c, opts.Verbose); err != nil {
		return WrapExitError(ExitCommandError, "couplings failed", err)
	}
	return nil
}
