package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultBotName          = "Mr. Prickles"
	DefaultBotVersion       = "mrprickles version 0.2.3"
	DefaultRefreshPeriod    = 6 * time.Hour
	DefaultGracePeriod      = 5 * time.Second
	DefaultAudioBitrate     = 48
	DefaultVideoBitrate     = 5000
	DefaultDBPath           = "mrprickles.db"
	DefaultHistoryRetention = 30 * 24 * time.Hour
)

// DefaultStatuses is the status message rotation.
var DefaultStatuses = []string{
	"a humorously-named cactus from australia",
	"i am a robot pretending to be a cactus",
}

// DefaultBootstrapNodes are well-known entry nodes of the network.
var DefaultBootstrapNodes = []BootstrapNode{
	{Host: "nodes.tox.chat", Port: 33445, PublicKey: "788237D34978D1D5BD822F0A5BEBD2C53C64CC31CD3149350EE27D4D9A2F9B6B"},
	{Host: "nodes.tox.chat", Port: 33445, PublicKey: "6FC41E2BD381D37E9748FC0E0328CE086AF9598BECC8FEB7DDF2E440475F300E"},
	{Host: "130.133.110.14", Port: 33445, PublicKey: "461FA3776EF0FA655F1A05477DF1B3B614F7D6B124F7DB1DD4FE3C08B03B640F"},
	{Host: "205.185.116.116", Port: 33445, PublicKey: "A179B09749AC826FF01F37A9613F6B57118AE014D4196A0E1105A98F93A54702"},
	{Host: "163.172.136.118", Port: 33445, PublicKey: "2C289F9F37C20D09DA83565588BF496FAB3764853FA38141817A72E3F18ACA0B"},
	{Host: "144.76.60.215", Port: 33445, PublicKey: "04119E835DF3E78BACF0F84235B300546AF8B936F035185E2A8E9E0A67C8924F"},
	{Host: "23.226.230.47", Port: 33445, PublicKey: "A09162D68618E742FFBCA1C2C70385E6679604B2D80EA6E84AD0996A1AC8A074"},
	{Host: "178.21.112.187", Port: 33445, PublicKey: "4B2C19E924972CB9B57732FB172F8A8604DE13EEDA2A6234E348983344B23057"},
	{Host: "195.154.119.113", Port: 33445, PublicKey: "E398A69646B8CEACA9F0B84F553726C1C49270558C57DF5F3C368F05A7D71354"},
	{Host: "192.210.149.121", Port: 33445, PublicKey: "F404ABAA1C99A9D37D61AB54898F56793E1DEF8BD46B1038B9D822E8460FAB67"},
}

// setDefaults registers every default with v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("bot.name", DefaultBotName)
	v.SetDefault("bot.statuses", DefaultStatuses)
	v.SetDefault("bot.refresh_period", DefaultRefreshPeriod)
	v.SetDefault("bot.version", DefaultBotVersion)

	v.SetDefault("profile.path", "")

	nodes := make([]map[string]any, 0, len(DefaultBootstrapNodes))
	for _, n := range DefaultBootstrapNodes {
		nodes = append(nodes, map[string]any{"host": n.Host, "port": n.Port, "public_key": n.PublicKey})
	}
	v.SetDefault("network.udp_enabled", true)
	v.SetDefault("network.bootstrap_nodes", nodes)

	v.SetDefault("call.audio_bitrate", DefaultAudioBitrate)
	v.SetDefault("call.video_bitrate", DefaultVideoBitrate)

	v.SetDefault("shutdown.grace_period", DefaultGracePeriod)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.history_retention", DefaultHistoryRetention)

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 0 4 * * *"},
		"history_prune":   map[string]any{"enabled": true, "schedule": "0 30 4 * * *"},
	})

	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.chat_id", 0)
}
