package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var MessagesDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_messages_deleted_total",
	Help: "Number of chat messages deleted by the moderation pipeline, by reason",
}, []string{"reason"})

var EphemeralTracked = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guard_ephemeral_tracked_total",
	Help: "Number of chart messages tracked for later cleanup",
})

var EphemeralExpired = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guard_ephemeral_expired_total",
	Help: "Number of chart messages expired by the janitor",
})

var CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_commands_total",
	Help: "Number of bot commands handled, by command",
}, []string{"command"})

var MembersEvicted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guard_members_evicted_total",
	Help: "Number of suspicious joining members removed",
})

var PlatformErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_platform_errors_total",
	Help: "Number of failed chat platform calls, by operation",
}, []string{"op"})
