package main

import (
	"github.com/nexagreement/agreementd/cmd"
)

func main() {
	cmd.Execute()
}
