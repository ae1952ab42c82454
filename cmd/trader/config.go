package trader

import (
	"autotrader/src/connectors"
	"autotrader/src/controller"
	"autotrader/src/executors"
	"autotrader/src/notify"
	"autotrader/src/risk"
	"autotrader/src/security"
	"autotrader/src/server"
	"autotrader/src/strategy"
	"autotrader/src/universe"
)

// Settings gathers the per-package env configuration of the trader.
type Settings struct {
	KIS        connectors.Config
	Risk       risk.Config
	Strategy   strategy.Config
	Controller controller.Config
	Universe   universe.Config
	Slack      notify.Config
	Jobs       executors.Config
	Server     *server.Config
	Security   security.Config
}

func GetSettings() Settings {
	return Settings{
		KIS:        connectors.GetConfig(),
		Risk:       risk.GetConfig(),
		Strategy:   strategy.GetConfig(),
		Controller: controller.GetConfig(),
		Universe:   universe.GetConfig(),
		Slack:      notify.GetConfig(),
		Jobs:       executors.GetConfig(),
		Server:     server.GetConfig(),
		Security:   security.GetConfig(),
	}
}
