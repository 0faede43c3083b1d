package main

import "github.com/MeKo-Tech/retouch/internal/cmd"

func main() {
	cmd.Execute()
}
