//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/progress2win/apiserver/types"
)

func TestLeaderboardPagination(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	password := "testpass123!"

	leaderEmail := fmt.Sprintf("leader_%d@example.com", time.Now().UnixNano())
	runnerUpEmail := fmt.Sprintf("runnerup_%d@example.com", time.Now().UnixNano())
	registerUser(t, baseURL, leaderEmail, password)
	registerUser(t, baseURL, runnerUpEmail, password)

	leader := login(t, baseURL, leaderEmail, password)
	runnerUp := login(t, baseURL, runnerUpEmail, password)

	// Totals far above anything the other tests leave behind, so the
	// two accounts occupy the top of the board in a known order.
	createProgress(t, baseURL, leader.AccessToken, 6000)
	createProgress(t, baseURL, leader.AccessToken, 4000)
	createProgress(t, baseURL, runnerUp.AccessToken, 7000)

	first := getLeaderboard(t, baseURL, leader.AccessToken, 1, 1)
	if len(first) != 1 {
		t.Fatalf("page 1 returned %d entries, want 1", len(first))
	}
	if first[0].User.Email != leaderEmail || first[0].Rank != 1 {
		t.Fatalf("page 1 got %s at rank %d, want %s at rank 1", first[0].User.Email, first[0].Rank, leaderEmail)
	}

	// Page two picks up where page one left off, rank included.
	second := getLeaderboard(t, baseURL, leader.AccessToken, 2, 1)
	if len(second) != 1 {
		t.Fatalf("page 2 returned %d entries, want 1", len(second))
	}
	if second[0].User.Email != runnerUpEmail || second[0].Rank != 2 {
		t.Fatalf("page 2 got %s at rank %d, want %s at rank 2", second[0].User.Email, second[0].Rank, runnerUpEmail)
	}
}

func createProgress(t *testing.T, baseURL, accessToken string, value float64) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"category": "fitness",
		"metric":   "distance",
		"value":    value,
		"unit":     "km",
		"date":     time.Now().Format("2006-01-02"),
	})
	if err != nil {
		t.Fatalf("marshal progress payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/progress", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post /progress: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("/progress status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func getLeaderboard(t *testing.T, baseURL, accessToken string, page, limit int) []types.LeaderboardEntry {
	t.Helper()

	url := fmt.Sprintf("%s/compare/leaderboard?page=%d&limit=%d", baseURL, page, limit)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("leaderboard status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var entries []types.LeaderboardEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode leaderboard response: %v", err)
	}
	return entries
}
