package main

import "github.com/mcoot/securechat-go/internal/cli"

func main() {
	cli.Execute()
}
