// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/eris/cmd/eris/cmd"
)

func main() {
	cmd.Execute()
}
