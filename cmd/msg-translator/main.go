package main

import "msg-translator/internal/cli"

func main() {
	cli.Execute()
}
