// Command quorum turns market feature vectors into audited consensus decisions.
//
// Usage:
//
//	quorum decide vector.json
//	quorum replay --parallel 4 batch.json
//	quorum serve --config quorum.yaml
//	quorum setup
package main

import (
	"context"
	"os"

	"github.com/vadiminshakov/quorum/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
