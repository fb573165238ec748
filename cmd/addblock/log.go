package main

import (
	"github.com/spreadcoin/spreadd/infrastructure/logger"
	"github.com/spreadcoin/spreadd/util/panics"
)

var (
	log   = logger.RegisterSubSystem("ADBK")
	spawn = panics.GoroutineWrapperFunc(log)
)
