package gdfvet_test

import (
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"

	gdfvet "github.com/l3aro/go-dataflow/vet"
)

func TestAnalyzer(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, gdfvet.Analyzer, "dead")
}

func TestGeneratedFilesAreSkipped(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, gdfvet.Analyzer, "generated")
}
