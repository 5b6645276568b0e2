/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTConfig follows mosquitto_sub command line args.
type MQTTConfig struct {
	Broker    string
	Port      int
	ClientId  string
	KeepAlive time.Duration
	Username  string
	Password  string
	Reconnect bool
	Clean     bool

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	WillTopic   string
	WillPayload string
	WillQoS     byte
	WillRetain  bool

	CertFilename string
	KeyFilename  string
	CAFilename   string
	Insecure     bool

	// SubTopics is a comma-separated list of TOPIC[:QOS].
	SubTopics string

	// InjectTopic puts the topic in the map of incoming
	// messages.
	InjectTopic bool

	// DefaultOutboundTopic is used for emitted events that don't
	// have a "topic" property.
	DefaultOutboundTopic string

	// InTimeout is the timeout for in-bound queuing.
	InTimeout time.Duration
}

// DefaultMQTTConfig returns the defaults.
func DefaultMQTTConfig() *MQTTConfig {
	return &MQTTConfig{
		Broker:               "tcp://localhost",
		Port:                 1883,
		KeepAlive:            10 * time.Second,
		Clean:                true,
		Quiesce:              100,
		InjectTopic:          true,
		DefaultOutboundTopic: "misc",
		InTimeout:            time.Second,
	}
}

// MQTT is a Couplings for an MQTT client.
//
// Incoming messages on the subscribed topics become events.  Emitted
// events are published to their "topic" (or the default topic).
type MQTT struct {
	Client mqtt.Client
	Config *MQTTConfig

	Verbose bool

	ctx      context.Context
	incoming chan interface{}
	outbound chan *Result
	done     chan bool
	wg       sync.WaitGroup
}

// NewMQTT makes an MQTT client.  No connection is attempted until
// Start.
func NewMQTT(cfg *MQTTConfig) (*MQTT, error) {
	if cfg == nil {
		cfg = DefaultMQTTConfig()
	}

	mqtt.ERROR = log.New(os.Stderr, "mqtt.error ", 0)

	if cfg.ClientId == "" {
		cfg.ClientId = "eventengine-" + uuid.New().String()
	}

	opts := mqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientId)
	opts.SetKeepAlive(cfg.KeepAlive)

	opts.Username = cfg.Username
	opts.Password = cfg.Password
	opts.AutoReconnect = cfg.Reconnect
	opts.CleanSession = cfg.Clean

	if cfg.WillTopic != "" {
		if cfg.WillPayload == "" {
			return nil, errors.New("will topic without payload")
		}
		opts.WillEnabled = true
		opts.WillTopic = cfg.WillTopic
		opts.WillPayload = []byte(cfg.WillPayload)
		opts.WillRetained = cfg.WillRetain
		opts.WillQos = cfg.WillQoS
	}

	tlsConf, err := cfg.tls()
	if err != nil {
		return nil, err
	}
	if tlsConf != nil {
		opts.SetTLSConfig(tlsConf)
	}

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %s", err)
	}

	c := &MQTT{
		Config:   cfg,
		ctx:      context.Background(),
		incoming: make(chan interface{}),
		outbound: make(chan *Result),
		done:     make(chan bool),
	}

	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		c.inHandler(c.ctx, msg)
	}

	c.Client = mqtt.NewClient(opts)

	return c, nil
}

func (cfg *MQTTConfig) tls() (*tls.Config, error) {
	if cfg.CAFilename == "" && cfg.KeyFilename == "" && !cfg.Insecure {
		return nil, nil
	}

	tlsConf := &tls.Config{
		InsecureSkipVerify: cfg.Insecure,
	}

	if cfg.CAFilename != "" {
		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		certs, err := ioutil.ReadFile(cfg.CAFilename)
		if err != nil {
			return nil, fmt.Errorf("couldn't read '%s': %w", cfg.CAFilename, err)
		}
		if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
			log.Println("No certs appended, using system certs only")
		}
		tlsConf.RootCAs = rootCAs
	}

	if cfg.KeyFilename != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFilename, cfg.KeyFilename)
		if err != nil {
			return nil, err
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}

	return tlsConf, nil
}

// inHandler is a Paho publish handler, which is used to handle
// messages sent to us from the MQTT broker due to our subscriptions.
func (c *MQTT) inHandler(ctx context.Context, msg mqtt.Message) {
	if c.Verbose {
		log.Printf("incoming: %s %s\n", msg.Topic(), msg.Payload())
	}
	var (
		x       interface{}
		payload = msg.Payload()
		topic   = msg.Topic()
	)

	if err := json.Unmarshal(payload, &x); err != nil {
		log.Printf("Couldn't JSON-parse payload: %s", payload)
		x = string(payload)
	}
	m, is := x.(map[string]interface{})
	if !is {
		// Wrap non-maps with the topic.
		m = map[string]interface{}{
			"payload": x,
		}
		m["topic"] = topic
	} else if c.Config.InjectTopic {
		m["topic"] = topic
	}

	to := time.NewTimer(c.Config.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
		log.Printf("Not forwarding due to ctx.Done()")
	case c.incoming <- m:
	case <-to.C:
		log.Printf("Not forwarding due to stall")
	}
}

// Start creates the MQTT session.
func (c *MQTT) Start(ctx context.Context) error {
	c.ctx = ctx

	log.Printf("Attempting to connect to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("Connected to broker")

	for _, topic := range strings.Split(c.Config.SubTopics, ",") {
		topic, qos := ParseTopic(topic)
		if topic == "" {
			continue
		}
		log.Printf("Subscribing to %s (%d)", topic, qos)
		if t := c.Client.Subscribe(topic, qos, nil); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	c.wg.Add(1)
	go c.outLoop(ctx)

	return nil
}

// IO returns the channels.
func (c *MQTT) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	return c.incoming, c.outbound, c.done, nil
}

// Route returns the topic and QoS for an emitted event.
func (c *MQTT) Route(x map[string]interface{}) (string, byte) {
	topic, qos := ParseTopic(c.Config.DefaultOutboundTopic)
	if t, have := x["topic"]; have {
		if s, is := t.(string); is {
			topic = s
		}
	}
	if n, have := x["qos"]; have {
		switch vv := n.(type) {
		case int64:
			qos = byte(vv)
		case float64:
			qos = byte(vv)
		default:
			log.Printf("warning: ignoring qos %#v %T", n, n)
		}
	}
	return topic, qos
}

// outLoop publishes events emitted by the engine.
func (c *MQTT) outLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-c.outbound:
			if r == nil {
				return
			}
			for _, x := range r.Emitted {
				topic, qos := c.Route(x)
				js, err := json.Marshal(x)
				if err != nil {
					log.Printf("Failed to marshal %#v", x)
					continue
				}
				token := c.Client.Publish(topic, qos, false, js)
				token.Wait()
				if token.Error() != nil {
					log.Printf("Publish error: %s", token.Error())
				}
			}
		}
	}
}

// Stop terminates the MQTT session.
func (c *MQTT) Stop(ctx context.Context) error {
	c.wg.Wait()
	log.Printf("Disconnecting")
	c.Client.Disconnect(c.Config.Quiesce)
	return nil
}

// ParseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func ParseTopic(s string) (string, byte) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n < 0 || 2 < n {
		return s, 0
	}
	return s[:i], byte(n)
}
