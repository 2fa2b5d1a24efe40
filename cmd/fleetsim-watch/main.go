package main

import (
	"github.com/autopeer-io/fleetsim/cmd/fleetsim-watch/app"
)

func main() {
	app.NewApp().Run()
}
