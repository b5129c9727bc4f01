package main

import (
	"github.com/sirupsen/logrus"

	"github.com/getwud/wud-triggers/cmd"
)

// init sets the default log level until flags override it.
func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

// main delegates to the cmd package.
func main() {
	cmd.Execute()
}
