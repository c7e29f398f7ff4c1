// Package main provides a load tool for the notification WebSocket.
//
// A listener account holds many sockets open while an actor account toggles
// likes on the listener's publication; every like fans out a notification
// to each open socket.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the run results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	LikesSent            int64
	EventsReceived       int64
	Notifications        int64
	Errors               int64
}

var metrics Metrics

type api struct {
	host   string
	client *http.Client
}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	listenerEmail := flag.String("listener", "", "Email of the account receiving notifications")
	actorEmail := flag.String("actor", "", "Email of the account liking the publication")
	password := flag.String("password", "Wanderplan123!", "Password shared by both accounts")
	clients := flag.Int("clients", 50, "Number of concurrent sockets")
	interval := flag.Duration("interval", 2*time.Second, "Delay between like toggles")
	duration := flag.Duration("duration", 30*time.Second, "Run duration")
	flag.Parse()

	if *listenerEmail == "" || *actorEmail == "" {
		fmt.Fprintln(os.Stderr, "usage: wsload -listener <email> -actor <email> [-clients n]")
		os.Exit(2)
	}

	log.Printf("🚀 Starting notification socket load")
	log.Printf("Target: %s, sockets: %d, duration: %v", *host, *clients, *duration)

	a := &api{host: *host, client: &http.Client{Timeout: 10 * time.Second}}

	listenerToken, err := a.login(*listenerEmail, *password)
	if err != nil {
		log.Fatalf("❌ Listener login failed: %v", err)
	}
	actorToken, err := a.login(*actorEmail, *password)
	if err != nil {
		log.Fatalf("❌ Actor login failed: %v", err)
	}

	pubID, err := a.publishTarget(listenerToken)
	if err != nil {
		log.Fatalf("❌ Could not publish a target plan: %v", err)
	}
	log.Printf("✅ Publication %d ready", pubID)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runSocket(*host, listenerToken, stopChan, &wg)
		time.Sleep(20 * time.Millisecond)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopChan:
				return
			case <-ticker.C:
				if err := a.post(fmt.Sprintf("/api/publications/%d/like", pubID), actorToken, nil, nil); err != nil {
					atomic.AddInt64(&metrics.Errors, 1)
					continue
				}
				atomic.AddInt64(&metrics.LikesSent, 1)
			}
		}
	}()

	select {
	case <-time.After(*duration):
		log.Println("⏱️  Run duration reached")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
	}

	close(stopChan)
	log.Println("Waiting for sockets to close...")
	wg.Wait()

	printMetrics()
}

func (a *api) post(path, token string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(http.MethodPost, "http://"+a.host+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s failed with status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *api) login(email, password string) (string, error) {
	var result struct {
		Token string `json:"token"`
	}
	err := a.post("/api/auth/login", "", map[string]string{"email": email, "password": password}, &result)
	return result.Token, err
}

// publishTarget creates a public plan for the listener and publishes it.
func (a *api) publishTarget(token string) (uint, error) {
	var plan struct {
		ID uint `json:"id"`
	}
	start := time.Now().AddDate(0, 1, 0)
	err := a.post("/api/plans", token, map[string]any{
		"city":      "Lisbon",
		"from_date": start.Format("2006-01-02"),
		"to_date":   start.AddDate(0, 0, 2).Format("2006-01-02"),
		"is_public": true,
	}, &plan)
	if err != nil {
		return 0, err
	}

	var pub struct {
		ID uint `json:"id"`
	}
	err = a.post(fmt.Sprintf("/api/plans/%d/publish", plan.ID), token, map[string]string{"description": "wsload target"}, &pub)
	return pub.ID, err
}

func runSocket(host, token string, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws", RawQuery: "token=" + url.QueryEscape(token)}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&metrics.EventsReceived, 1)
			var evt struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(raw, &evt) == nil && evt.Type == "notification" {
				atomic.AddInt64(&metrics.Notifications, 1)
			}
		}
	}()

	select {
	case <-stopChan:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	case <-done:
	}
}

func printMetrics() {
	log.Println("\n📊 Results")
	log.Println("==========")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Likes Sent: %d", atomic.LoadInt64(&metrics.LikesSent))
	log.Printf("Events Received: %d", atomic.LoadInt64(&metrics.EventsReceived))
	log.Printf("Notifications Received: %d", atomic.LoadInt64(&metrics.Notifications))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
