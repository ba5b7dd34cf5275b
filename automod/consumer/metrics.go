package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var modlogEntriesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "towerbot_modlog_entries_received",
	Help: "Number of modlog entries received",
})

var postsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "towerbot_posts_received",
	Help: "Number of new submissions received",
})

var postsArchived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "towerbot_posts_archived",
	Help: "Number of posterity comments created",
})

var inboxMessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "towerbot_inbox_messages_received",
	Help: "Number of inbox messages received",
})

var inboxCommands = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "towerbot_inbox_commands",
	Help: "Number of inbox commands executed, by subject",
}, []string{"subject"})

var watcherFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "towerbot_watcher_failures",
	Help: "Number of fatal watcher failures, by watcher",
}, []string{"watcher"})
