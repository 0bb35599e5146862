package main

import "github.com/imyu7/calendar-sync/cmd/calendar-sync/cmd"

func main() {
	cmd.Execute()
}
