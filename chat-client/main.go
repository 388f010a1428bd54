// Command chat-client is a terminal front end: lines typed on stdin are
// sent to POST /api/chat and every turn broadcast on /ws is printed.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jessevdk/go-flags"
)

type options struct {
	Server string `short:"s" long:"server" env:"HUNTLEY_URL" default:"http://localhost:3000" description:"server base URL"`
	Quiet  bool   `short:"q" long:"quiet" description:"do not print the live feed"`
}

type frame struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Message string `json:"message"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	base := strings.TrimRight(opts.Server, "/")
	client := &http.Client{Timeout: 2 * time.Minute}

	if !opts.Quiet {
		conn, _, err := websocket.DefaultDialer.Dial(feedURL(base), nil)
		if err != nil {
			log.Printf("Live feed unavailable: %v", err)
		} else {
			defer conn.Close()
			go printFeed(conn)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down...")
		os.Exit(0)
	}()

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Type a message for Huntley (type 'exit' to quit):")
	for {
		fmt.Print("> ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)
		if text == "exit" {
			return
		}
		if text == "" {
			continue
		}

		reply, err := send(client, base, text)
		if err != nil {
			log.Println("Error:", err)
			continue
		}
		if opts.Quiet {
			fmt.Printf("Bot: %s\n", reply)
		}
	}
}

func feedURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return "ws://localhost:3000/ws"
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func printFeed(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			log.Println("Live feed closed:", err)
			return
		}
		switch f.Type {
		case "turn":
			fmt.Printf("\r%s: %s\n> ", f.Sender, f.Content)
		case "error":
			fmt.Printf("\rerror: %s\n> ", f.Message)
		}
	}
}

func send(client *http.Client, base, text string) (string, error) {
	body, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(base+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out struct {
		Response string `json:"response"`
		Error    string `json:"error"`
		Details  string `json:"details"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Details != "" {
			return "", fmt.Errorf("%s (%s)", out.Error, out.Details)
		}
		return "", fmt.Errorf("%s", out.Error)
	}
	return out.Response, nil
}
