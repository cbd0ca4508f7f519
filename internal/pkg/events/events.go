// Package events publishes domain events about tenant configuration changes.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	TypePlanChanged     = "plan.changed"
	TypeAddonChanged    = "addon.changed"
	TypeOverrideChanged = "override.changed"
	TypeOverageChanged  = "overage_refs.changed"
	TypeTenantCreated   = "tenant.created"
)

// Event is the message published on the events channel.
type Event struct {
	Type       string         `json:"event"`
	TenantID   string         `json:"tenant_id"`
	Version    int            `json:"version,omitempty"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func newEvent(typ, tenantID string, version int, payload map[string]any) Event {
	return Event{Type: typ, TenantID: tenantID, Version: version, Payload: payload, OccurredAt: time.Now().UTC()}
}

func PlanChanged(tenantID string, version int, oldPlan, newPlan string) Event {
	return newEvent(TypePlanChanged, tenantID, version, map[string]any{"old_plan": oldPlan, "new_plan": newPlan})
}

func AddonChanged(tenantID string, version int, changes map[string]any) Event {
	return newEvent(TypeAddonChanged, tenantID, version, changes)
}

func OverrideChanged(tenantID string, version int, changes map[string]any) Event {
	return newEvent(TypeOverrideChanged, tenantID, version, changes)
}

func OverageRefsChanged(tenantID string, version int, perStylist, perLocation string) Event {
	return newEvent(TypeOverageChanged, tenantID, version, map[string]any{
		"per_stylist_ref":  perStylist,
		"per_location_ref": perLocation,
	})
}

func TenantCreated(tenantID, slug, name string) Event {
	return newEvent(TypeTenantCreated, tenantID, 0, map[string]any{"slug": slug, "name": name})
}

// Publisher delivers events. Delivery is best effort: a failed publish is
// logged and never fails the mutation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// RedisPublisher publishes events as JSON on a Redis Pub/Sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Errorf("event %s for tenant %s failed to encode: %v", event.Type, event.TenantID, err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		log.Warnf("event %s for tenant %s not published: %v", event.Type, event.TenantID, err)
		return
	}
	log.Infof("event %s published for tenant %s", event.Type, event.TenantID)
}

// LogPublisher only logs events. Used when no Redis is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event Event) {
	log.Infof("event %s for tenant %s: %v", event.Type, event.TenantID, event.Payload)
}
