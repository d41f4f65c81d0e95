// Package autoload initializes the global logger from the LOG_* environment
// variables as a side effect of being imported.
package autoload

import (
	configx "github.com/marcovalle/ventia/pkg/config"
	logx "github.com/marcovalle/ventia/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*cfg)
}
