package main

import "github.com/mj1618/uiautomator-server/cmd"

func main() {
	cmd.Execute()
}
