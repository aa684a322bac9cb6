package main

import (
	"fmt"

	"github.com/kfio/kfio/internal/configfile"
)

// info pretty-prints the effective configuration for human consumption.
// This is called when you pass the "-info" option.
func info(cf *configfile.ConfFile) {
	src := cf.Filename()
	if src == "" {
		src = "(built-in defaults)"
	}
	fmt.Printf("Config file:    %s\n", src)
	fmt.Printf("Creator:        %s\n", cf.Creator)
	fmt.Printf("Version:        %d\n", cf.Version)
	fmt.Printf("OpenMax:        %d\n", cf.OpenMax)
	fmt.Printf("SystemOpenMax:  %d\n", cf.SystemOpenMax)
	fmt.Printf("MaxIO:          %d\n", cf.MaxIO)
	fmt.Printf("Console:        %s\n", cf.Console)
	fmt.Printf("Storage:        %s\n", cf.Storage)
	if cf.Storage == configfile.StorageHost {
		fmt.Printf("Root:           %s\n", cf.Root)
	}
}
