package main

import "github.com/edgewall-hq/go-sonicos/internal/cli"

func main() {
	cli.Execute()
}
