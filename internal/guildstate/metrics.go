package guildstate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reconfigureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_guild_reconfigurations",
	Help: "Number of guild reconfiguration attempts by outcome",
}, []string{"outcome"})

var loadedGuilds = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warden_loaded_guilds",
	Help: "Number of guilds with a published configuration",
})
