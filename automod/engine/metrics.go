package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var configReloads = promauto.NewCounter(prometheus.CounterOpts{
	Name: "towerbot_config_reloads",
	Help: "Number of successful ruleset reloads",
})

var configReloadErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "towerbot_config_reload_errors",
	Help: "Number of ruleset reloads rejected by parsing or validation",
})

var actionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "towerbot_actions_executed",
	Help: "Number of flair actions dispatched, by action kind",
}, []string{"action"})

var operatorReports = promauto.NewCounter(prometheus.CounterOpts{
	Name: "towerbot_operator_reports",
	Help: "Number of error reports sent to operators",
})
