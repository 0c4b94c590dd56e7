package main

import "github.com/tosih/xdf-exporter/pkg/cli"

func main() {
	cli.Execute()
}
