package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/fleetsim/cmd/fleetsim-server/app"
)

func main() {
	app.NewApp().Run()
}
