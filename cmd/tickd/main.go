// Command tickd serves the tick counter over HTTP.
//
//	tickd --store sqlite --sqlite-path tick.db
//	curl http://localhost:9998/javacount
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
