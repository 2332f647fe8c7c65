// Command board_audit fetches each teacher's board twice, once as served and
// once after forcing a snapshot reconciliation, and reports any drift between
// the two. Exits nonzero when a drifting board is found, so it can gate
// deploys from CI.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type boardView struct {
	TeacherID      string            `json:"teacher_id"`
	Version        uint64            `json:"version"`
	Events         []json.RawMessage `json:"events"`
	PendingCreates []string          `json:"pending_creates"`
	PendingDeletes []string          `json:"pending_deletes"`
}

type envelope struct {
	Data boardView `json:"data"`
}

type audit struct {
	TeacherID string
	Before    boardView
	After     boardView
	Drifted   bool
	Error     error
	Duration  time.Duration
}

func main() {
	var (
		base     string
		date     string
		teachers string
		token    string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "board API base URL")
	flag.StringVar(&date, "date", time.Now().Format("2006-01-02"), "board day to audit")
	flag.StringVar(&teachers, "teachers", "", "comma separated teacher ids (required)")
	flag.StringVar(&token, "token", os.Getenv("BOARD_AUDIT_TOKEN"), "bearer token")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	ids := splitIDs(teachers)
	if len(ids) == 0 {
		log.Fatal("no teacher ids given; pass -teachers t1,t2,...")
	}

	client := &http.Client{Timeout: timeout}
	drifted := 0
	var audits []audit
	for _, teacherID := range ids {
		a := auditTeacher(client, base, date, token, teacherID)
		if a.Drifted || a.Error != nil {
			drifted++
		}
		audits = append(audits, a)
	}

	printReport(audits)
	if drifted > 0 {
		os.Exit(1)
	}
}

func splitIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func auditTeacher(client *http.Client, base, date, token, teacherID string) audit {
	a := audit{TeacherID: teacherID}
	start := time.Now()
	defer func() { a.Duration = time.Since(start) }()

	before, err := fetchBoard(client, base, date, token, teacherID)
	if err != nil {
		a.Error = fmt.Errorf("fetch before sync: %w", err)
		return a
	}
	a.Before = before

	if err := forceSync(client, base, date, token, teacherID); err != nil {
		a.Error = fmt.Errorf("force sync: %w", err)
		return a
	}

	after, err := fetchBoard(client, base, date, token, teacherID)
	if err != nil {
		a.Error = fmt.Errorf("fetch after sync: %w", err)
		return a
	}
	a.After = after
	a.Drifted = boardsDiffer(before, after)
	return a
}

func fetchBoard(client *http.Client, base, date, token, teacherID string) (boardView, error) {
	url := fmt.Sprintf("%s/boards/%s?date=%s", base, teacherID, date)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return boardView{}, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return boardView{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return boardView{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return boardView{}, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return boardView{}, err
	}
	return env.Data, nil
}

func forceSync(client *http.Client, base, date, token, teacherID string) error {
	url := fmt.Sprintf("%s/boards/%s/sync?date=%s", base, teacherID, date)
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// boardsDiffer ignores the version counter: a forced sync bumps it even when
// nothing changed. Pending work on either side counts as drift, since a
// healthy steady-state board has none outstanding.
func boardsDiffer(before, after boardView) bool {
	if len(before.PendingCreates) > 0 || len(before.PendingDeletes) > 0 {
		return true
	}
	if len(before.Events) != len(after.Events) {
		return true
	}
	for i := range before.Events {
		if string(before.Events[i]) != string(after.Events[i]) {
			return true
		}
	}
	return false
}

func printReport(audits []audit) {
	fmt.Printf("%-20s %-8s %-8s %-10s %s\n", "TEACHER", "EVENTS", "DRIFT", "DURATION", "ERROR")
	for _, a := range audits {
		errMsg := ""
		if a.Error != nil {
			errMsg = a.Error.Error()
		}
		fmt.Printf("%-20s %-8d %-8v %-10s %s\n",
			a.TeacherID, len(a.After.Events), a.Drifted, a.Duration.Round(time.Millisecond), errMsg)
	}
}
