// Command pycellsheet is a headless CLI front end over the
// spreadsheet recalculation engine in internal/engine.
package main

import "github.com/EuphoricCatface/pycellsheet/cmd/pycellsheet/cmd"

func main() {
	cmd.Execute()
}
