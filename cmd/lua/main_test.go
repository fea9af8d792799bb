package main

// End-to-end CLI fixtures (SPEC_FULL.md section A): small .lua programs
// with expected stdout, run through the built `lua` binary, the same
// role the teacher's bespoke internal/testing package played for .sn
// scripts — here driven by github.com/rogpeppe/go-internal/testscript
// instead of a hand-rolled runner.

import (
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"lua": main,
	})
}

func TestCLIScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
