package main

import (
	_ "time/tzdata"

	"github.com/ThomasByr/skyroulette/cmd"
)

func main() {
	cmd.Execute()
}
