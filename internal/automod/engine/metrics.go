package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messageProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "warden_message_duration_sec",
	Help: "Total duration of message evaluation",
}, []string{"type"})

var messageErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_message_errors",
	Help: "Number of messages which failed evaluation",
}, []string{"type"})

var ruleMatchCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_rule_matches",
	Help: "Number of rule matches by module and outcome",
}, []string{"module", "outcome"})

var directiveCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_directives_executed",
	Help: "Number of response directives executed",
}, []string{"verb", "success"})
