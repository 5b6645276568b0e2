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
	"encoding/json"
	"log"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocket is a Couplings for a WebSocket client.
//
// Each text message from the server is an event.  Each emitted event
// is sent back as a text message.  When the server closes the
// connection, input is done.
type WebSocket struct {
	URL string

	Verbose bool

	in   chan interface{}
	out  chan *Result
	done chan bool
	conn *websocket.Conn
	wg   sync.WaitGroup
}

// NewWebSocket makes a WebSocket that will dial the given URL.
func NewWebSocket(u string) *WebSocket {
	return &WebSocket{
		URL:  u,
		in:   make(chan interface{}),
		out:  make(chan *Result),
		done: make(chan bool),
	}
}

// Start creates the WebSocket session and starts processing it.
func (c *WebSocket) Start(ctx context.Context) error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}

	log.Println("wsconnect", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn

	c.wg.Add(1)
	go c.readLoop(ctx)

	c.wg.Add(1)
	go c.writeLoop(ctx)

	return nil
}

func (c *WebSocket) readLoop(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, bs, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("ReadMessage error %s", err)
			}
			return
		}
		if len(bs) == 0 {
			continue
		}
		if c.Verbose {
			log.Println("heard", string(bs))
		}

		var msg interface{}
		if err = json.Unmarshal(bs, &msg); err != nil {
			log.Printf("Unmarshal error %s: %s", err, bs)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case c.in <- msg:
		}
	}
}

func (c *WebSocket) writeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-c.out:
			if r == nil {
				return
			}
			for _, x := range r.Emitted {
				js, err := json.Marshal(x)
				if err != nil {
					log.Printf("Marshal error %s", err)
					continue
				}
				// Keep draining so Run never blocks.
				if err = c.conn.WriteMessage(websocket.TextMessage, js); err != nil {
					log.Printf("WriteMessage error %s", err)
				}
			}
		}
	}
}

// IO just returns the channels.
func (c *WebSocket) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop terminates the WebSocket connection.
func (c *WebSocket) Stop(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	log.Printf("Disconnecting")
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteMessage(websocket.CloseMessage, msg)
	err := c.conn.Close()
	c.wg.Wait()
	return err
}
