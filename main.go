package main

import (
	"os"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/cli"
)

func main() {
	cli.InitRoot()
	os.Exit(cli.ExecuteWithErrorCode(os.Args[1:]))
}
