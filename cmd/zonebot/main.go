package main

import (
	"os"

	"github.com/tradekit/zonebot/cmd/zonebot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
