package env

import (
	"github.com/thatsimonsguy/sunrise-lamp/internal/config"
)

var Cfg *config.Config
