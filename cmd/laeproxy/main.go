// Command laeproxy runs the range-aware HTTP forward proxy: it decodes a
// proxy-encoded target URL from the request path, relays the request
// upstream under a set of quotas, and annotates the response with
// diagnostic headers describing what happened.
//
// To build a custom entry point, vendor internal/cmd's Root() the way this
// one wraps it.
package main

import (
	"fmt"
	"os"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/getlantern/laeproxy/internal/cmd"
)

func main() {
	// Respect container CPU/memory cgroup limits so GOMAXPROCS and GOMEMLIMIT
	// track whatever quota-bound sandbox this proxy is actually running in.
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "laeproxy: setting GOMAXPROCS: %v\n", err)
	}
	if _, err := memlimit.SetGoMemLimitWithOpts(); err != nil {
		fmt.Fprintf(os.Stderr, "laeproxy: setting GOMEMLIMIT: %v\n", err)
	}

	if err := cmd.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
