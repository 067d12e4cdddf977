package vector

import (
	"context"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/logger"
)

const (
	defaultProductInfo = "Our product is an AI-powered email assistant that helps sales teams manage their inbox, classify inbound interest and book meetings automatically."
	defaultOutreach    = "Our outreach goal is to schedule a short intro call to walk through the product and understand the prospect's current email workflow."
	defaultScheduling  = "Meetings can be booked through our shared calendar link. Standard slots are 30 minutes, Monday to Friday, business hours."
)

// SeedStore loads the reference corpus used for reply grounding. Seed failures
// are logged and skipped so a degraded corpus never blocks startup.
func SeedStore(ctx context.Context, store interfaces.VectorStore, cfg *config.VectorConfig, log logger.Logger) {
	seeds := []struct {
		id      string
		content string
		tag     string
	}{
		{"product-info", firstNonEmpty(cfg.SeedProductInfo, defaultProductInfo), "product"},
		{"outreach-agenda", firstNonEmpty(cfg.SeedOutreachAgenda, defaultOutreach), "outreach"},
		{"meeting-booking", firstNonEmpty(cfg.SeedMeetingBooking, defaultScheduling), "scheduling"},
	}

	for _, seed := range seeds {
		err := store.Upsert(ctx, seed.id, seed.content, map[string]string{"topic": seed.tag})
		if err != nil {
			log.Warnf("vector seed %s failed: %v", seed.id, err)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
