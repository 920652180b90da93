// Interactive test client: creates or joins a party over HTTP, subscribes to
// its event room over WebSocket and prints everything the server pushes.
package main

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	msgTypeHeartbeat = 1
	msgTypeJoinRoom  = 101
)

var (
	serverAddr = flag.String("server", "localhost:5050", "party server address")
	username   = flag.String("username", "Guest", "display name")
	joinCode   = flag.String("code", "", "party code to join; empty creates a new party")
)

// send frames and sends a packet to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func post(path string, body map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	resp, err := http.Post("http://"+*serverAddr+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func main() {
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	code := *joinCode
	if code == "" {
		resp, err := post("/create-party", map[string]interface{}{"username": *username})
		if err != nil {
			log.Fatalf("Create failed: %v", err)
		}
		code, _ = resp["code"].(string)
		log.Printf("Created party %s", code)
	} else {
		resp, err := post("/join-party", map[string]interface{}{"code": code, "username": *username})
		if err != nil {
			log.Fatalf("Join failed: %v", err)
		}
		if ok, _ := resp["success"].(bool); !ok {
			log.Fatalf("Join rejected: %v", resp["message"])
		}
		log.Printf("Joined party %s as %s", code, *username)
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	subscribe, _ := json.Marshal(map[string]string{"code": code, "username": *username})
	if err := send(c, msgTypeJoinRoom, subscribe); err != nil {
		log.Fatalf("Subscribe failed: %v", err)
	}

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v", err)
				return
			}
			if len(message) < 4 {
				continue
			}
			log.Printf("<- %s", message[4:])
		}
	}()

	// Heartbeat loop
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := send(c, msgTypeHeartbeat, nil); err != nil {
				return
			}
		}
	}()

	// Stdin loop: "leave", "start", "advance" or quit with Ctrl+C.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			switch strings.TrimSpace(scanner.Text()) {
			case "leave":
				post("/leave-party", map[string]interface{}{"code": code, "username": *username})
			case "start":
				post("/start-game", map[string]interface{}{"code": code, "host": *username})
			case "advance":
				post("/advance-turn", map[string]interface{}{"code": code, "username": *username})
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupted, closing connection")
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
