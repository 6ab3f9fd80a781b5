package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type GalleryMetrics struct {
	eventsEmitted *prometheus.CounterVec
	mints         prometheus.Counter
	purchases     prometheus.Counter
	likes         prometheus.Counter
	comments      prometheus.Counter
	stakes        prometheus.Counter
	tierUnlocks   prometheus.Counter
	callFailures  *prometheus.CounterVec
}

var (
	galleryOnce     sync.Once
	galleryRegistry *GalleryMetrics
)

func Gallery() *GalleryMetrics {
	galleryOnce.Do(func() {
		galleryRegistry = &GalleryMetrics{
			eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "gallery_events_emitted_total",
				Help: "Count of ledger events appended to the journal by type.",
			}, []string{"type"}),
			mints: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gallery_mints_total",
				Help: "Count of NFTs minted.",
			}),
			purchases: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gallery_purchases_total",
				Help: "Count of completed NFT purchases.",
			}),
			likes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gallery_likes_total",
				Help: "Count of accepted like increments.",
			}),
			comments: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gallery_comments_total",
				Help: "Count of appended comments.",
			}),
			stakes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gallery_stakes_total",
				Help: "Count of accepted stake calls.",
			}),
			tierUnlocks: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "gallery_tier_unlocks_total",
				Help: "Count of tier progressions.",
			}),
			callFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "gallery_call_failures_total",
				Help: "Count of rejected ledger calls by failure kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			galleryRegistry.eventsEmitted,
			galleryRegistry.mints,
			galleryRegistry.purchases,
			galleryRegistry.likes,
			galleryRegistry.comments,
			galleryRegistry.stakes,
			galleryRegistry.tierUnlocks,
			galleryRegistry.callFailures,
		)
	})
	return galleryRegistry
}

// RecordEvent tallies an emitted event and its per-operation counter.
func (m *GalleryMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.eventsEmitted.WithLabelValues(eventType).Inc()
	switch eventType {
	case "gallery.nft.minted":
		m.mints.Inc()
	case "gallery.nft.purchased":
		m.purchases.Inc()
	case "gallery.like.added":
		m.likes.Inc()
	case "gallery.comment.added":
		m.comments.Inc()
	case "gallery.stake.recorded":
		m.stakes.Inc()
	case "gallery.tier.unlocked":
		m.tierUnlocks.Inc()
	}
}

// RecordFailure tallies a rejected call by failure kind.
func (m *GalleryMetrics) RecordFailure(kind string) {
	if m == nil {
		return
	}
	m.callFailures.WithLabelValues(kind).Inc()
}
