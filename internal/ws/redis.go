package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/gridstake/backend/internal/models"
)

const matchEventsChannel = "match_events"

// matchEvent is the payload fanned out over Redis so every replica's hub
// can notify its own watchers.
type matchEvent struct {
	Type    string           `json:"type"`
	MatchID int              `json:"match_id"`
	Match   *models.PvpMatch `json:"match"`
}

// PublishMatchUpdate publishes a match state change. Best-effort: a
// failed publish only costs a push notification, pollers still see the
// new state.
func PublishMatchUpdate(ctx context.Context, rdb *redis.Client, m *models.PvpMatch) {
	if rdb == nil || m == nil {
		return
	}
	payload, err := json.Marshal(matchEvent{Type: "match_update", MatchID: m.ID, Match: m})
	if err != nil {
		log.Printf("[WS] Failed to marshal match event: %v", err)
		return
	}
	if err := rdb.Publish(ctx, matchEventsChannel, payload).Err(); err != nil {
		log.Printf("[WS] Failed to publish match event for match %d: %v", m.ID, err)
	}
}

// StartMatchEventSubscriber subscribes to the match_events channel and
// relays incoming updates to this process's watchers.
func StartMatchEventSubscriber(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; match event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, matchEventsChannel)
	ch := pubsub.Channel()
	go func() {
		log.Println("[WS] match_events subscriber started")
		for msg := range ch {
			var ev matchEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[WS] Invalid match event payload: %v", err)
				continue
			}
			if ev.MatchID == 0 {
				continue
			}
			MatchHub.BroadcastToMatch(ev.MatchID, ev)
		}
	}()
}
