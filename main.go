package main

import (
	"github.com/frahmantamala/crypto-settlement/cmd"
)

func main() {
	cmd.Execute()
}
