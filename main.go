package main

import "github.com/KaramelBytes/ineqdash/cmd"

func main() {
	cmd.Execute()
}
