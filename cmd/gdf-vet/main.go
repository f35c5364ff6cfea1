// Command gdf-vet reports dead statements in Go packages.
//
// Usage:
//
//	gdf-vet ./...
//
// Or as a vet tool:
//
//	go vet -vettool=$(which gdf-vet) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	gdfvet "github.com/l3aro/go-dataflow/vet"
)

func main() {
	singlechecker.Main(gdfvet.Analyzer)
}
