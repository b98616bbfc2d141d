package main

import (
	"github.com/Dzhud/issue-tracker/internal/command"
	"github.com/Dzhud/issue-tracker/internal/command/export"
	"github.com/Dzhud/issue-tracker/internal/command/issues"
)

func main() {
	command.Main(
		"issuectl", "an issue tracker client tool",
		append(issues.Commands(), export.Command())...,
	)
}
