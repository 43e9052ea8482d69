package main

import (
	"github.com/HarshitVashisht11/Transly/internal/app/transcription"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	transcription.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
  ______                      __
 /_  __/________ _____  _____/ /_  __
  / / / ___/ __ ` + "`" + `/ __ \/ ___/ / / / /
 / / / /  / /_/ / / / (__  ) / /_/ /
/_/ /_/   \__,_/_/ /_/____/_/\__, /  v: %s
                            /____/
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("github.com/HarshitVashisht11/Transly"))
}
