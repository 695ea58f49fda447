// cmd/quad/main.go — command line front end for goquad
//
// Usage:
//
//	quad eval "x^2 + 1" 3
//	quad solve "x^2" 0 1 --tol 1e-6
//	quad solve2d "x^2 + y^2" 0 1 0 1
//	quad serve --port 8080
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewCommandQuad(os.Stdout).ExecuteContext(ctx)
	stop()
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
