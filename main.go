package main

import "github.com/mrsingh-rishi/live-captions/cmd/root"

func main() {
	root.Execute()
}
