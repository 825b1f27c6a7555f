package main

import "church-site-backend/cmd"

func main() {
	cmd.Run()
}
