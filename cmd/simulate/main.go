// simulate hammers a single provider slot with concurrent booking requests
// and checks that every round produces exactly one winner. The winner then
// cancels, freeing the slot for the next round.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type simConfig struct {
	baseURL    string
	providerID string
	slotDate   string
	slotTime   string
	workers    int
	rounds     int
}

type bookRequest struct {
	ProviderID string `json:"provider_id"`
	SlotDate   string `json:"slot_date"`
	SlotTime   string `json:"slot_time"`
}

type bookResponse struct {
	ID uuid.UUID `json:"id"`
}

type metrics struct {
	mu        sync.Mutex
	success   int
	conflict  int
	failure   int
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch status {
	case http.StatusCreated:
		m.success++
	case http.StatusConflict:
		m.conflict++
	default:
		m.failure++
	}
	m.latencies = append(m.latencies, latency)
}

func (m *metrics) report() {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.Slice(m.latencies, func(i, j int) bool { return m.latencies[i] < m.latencies[j] })

	var sum time.Duration
	for _, l := range m.latencies {
		sum += l
	}

	n := len(m.latencies)
	if n == 0 {
		log.Println("no requests recorded")
		return
	}

	p := func(q int) time.Duration {
		idx := n * q / 100
		if idx >= n {
			idx = n - 1
		}
		return m.latencies[idx]
	}

	log.Printf("requests=%d success=%d conflict=%d failure=%d", n, m.success, m.conflict, m.failure)
	log.Printf("latency avg=%s p50=%s p95=%s max=%s", sum/time.Duration(n), p(50), p(95), m.latencies[n-1])
}

func main() {
	log.SetFlags(log.LstdFlags)

	cfg := simConfig{}
	flag.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "api server base URL")
	flag.StringVar(&cfg.providerID, "provider", "", "provider UUID to book (required)")
	flag.StringVar(&cfg.slotDate, "date", "2024-07-01", "slot date")
	flag.StringVar(&cfg.slotTime, "time", "10:00", "slot time label")
	flag.IntVar(&cfg.workers, "workers", 50, "concurrent bookers per round")
	flag.IntVar(&cfg.rounds, "rounds", 10, "book/cancel rounds")
	flag.Parse()

	if cfg.providerID == "" {
		flag.Usage()
		os.Exit(2)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	m := &metrics{}

	for round := 1; round <= cfg.rounds; round++ {
		winners := runRound(client, cfg, m)

		if len(winners) != 1 {
			log.Fatalf("round %d: expected exactly 1 winner, got %d", round, len(winners))
		}

		w := winners[0]
		if err := cancel(client, cfg, w.userID, w.appointmentID); err != nil {
			log.Fatalf("round %d: cancel winner: %v", round, err)
		}

		log.Printf("round %d ok: 1 winner, %d contenders", round, cfg.workers)
	}

	m.report()
}

type winner struct {
	userID        uuid.UUID
	appointmentID uuid.UUID
}

func runRound(client *http.Client, cfg simConfig, m *metrics) []winner {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []winner

	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			userID := uuid.New()
			start := time.Now()
			status, apptID, err := book(client, cfg, userID)
			m.record(time.Since(start), status)
			if err != nil {
				return
			}

			if status == http.StatusCreated {
				mu.Lock()
				winners = append(winners, winner{userID: userID, appointmentID: apptID})
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return winners
}

func book(client *http.Client, cfg simConfig, userID uuid.UUID) (int, uuid.UUID, error) {
	body, err := json.Marshal(bookRequest{
		ProviderID: cfg.providerID,
		SlotDate:   cfg.slotDate,
		SlotTime:   cfg.slotTime,
	})
	if err != nil {
		return 0, uuid.Nil, err
	}

	req, err := http.NewRequest(http.MethodPost, cfg.baseURL+"/api/appointments", bytes.NewReader(body))
	if err != nil {
		return 0, uuid.Nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())

	resp, err := client.Do(req)
	if err != nil {
		return 0, uuid.Nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, uuid.Nil, nil
	}

	var booked bookResponse
	if err := json.NewDecoder(resp.Body).Decode(&booked); err != nil {
		return resp.StatusCode, uuid.Nil, err
	}

	return resp.StatusCode, booked.ID, nil
}

func cancel(client *http.Client, cfg simConfig, userID, appointmentID uuid.UUID) error {
	url := fmt.Sprintf("%s/api/appointments/%s/cancel", cfg.baseURL, appointmentID)

	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-User-ID", userID.String())

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
