package main

import "github.com/MeKo-Tech/robomaze/cmd/robomaze/cmd"

func main() {
	cmd.Execute()
}
