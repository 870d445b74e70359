package main

import (
	"coalseq/internal/appshell"
	"coalseq/internal/cli"
)

func main() {
	appshell.Main(cli.Execute)
}
