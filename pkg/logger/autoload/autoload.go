// Package autoload initializes the global logger from the LOGGER_* env on
// import. Blank-import it from main.
package autoload

import (
	configx "github.com/orderai/orderai/pkg/config"
	logx "github.com/orderai/orderai/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOGGER")
	logx.Init(*cfg)
}
