package model

import (
	"encoding/json"
	"testing"
)

func TestQueueType_Valid(t *testing.T) {
	valid := []QueueType{QueueOneOnOne, QueueSmall, QueueLarge}
	for _, q := range valid {
		if !q.Valid() {
			t.Errorf("QueueType(%q).Valid() = false, want true", q)
		}
	}

	invalid := []QueueType{"", "MEDIUM", "one_on_one", "small"}
	for _, q := range invalid {
		if q.Valid() {
			t.Errorf("QueueType(%q).Valid() = true, want false", q)
		}
	}
}

func TestMatchCurrentResponse_PendingOmitsGroup(t *testing.T) {
	resp := MatchCurrentResponse{Status: MatchPending}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["status"] != "PENDING" {
		t.Errorf("status = %v, want PENDING", decoded["status"])
	}
	// PENDINGのときgroupは出力しない
	if _, ok := decoded["group"]; ok {
		t.Error("group should be omitted for pending match")
	}
}

func TestQueuesResponse_DecodesUpstreamShape(t *testing.T) {
	raw := `{
		"ONE_ON_ONE": [{"telegram_id": "1", "username": "a", "display_name": "A", "joined_at": "2026-08-01T10:00:00Z"}],
		"SMALL": [],
		"LARGE": [{"telegram_id": "2", "username": "b", "display_name": "B", "joined_at": "2026-08-01T11:00:00Z"}]
	}`

	var resp QueuesResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(resp.OneOnOne) != 1 || resp.OneOnOne[0].TelegramID != "1" {
		t.Errorf("OneOnOne = %+v, want one entry with telegram_id 1", resp.OneOnOne)
	}
	if len(resp.Small) != 0 {
		t.Errorf("Small = %+v, want empty", resp.Small)
	}
	if len(resp.Large) != 1 || resp.Large[0].Username != "b" {
		t.Errorf("Large = %+v, want one entry with username b", resp.Large)
	}
}
