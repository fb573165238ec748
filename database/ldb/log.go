package ldb

import (
	"github.com/spreadcoin/spreadd/infrastructure/logger"
)

var log = logger.RegisterSubSystem("BDB")
