package cmd

import (
	"github.com/Southclaws/fault/fmsg"
	"github.com/fatih/color"
)

// printWarn prints a warning to the screen.
func printWarn(message string) {
	message = "[-] " + message

	color.New(color.FgYellow, color.Bold).Println(message)
}

// printError prints an error to the screen.
// If the error carries a user-facing message, only that message is printed.
func printError(err error) {
	issue := fmsg.GetIssue(err)
	if issue == "" {
		issue = err.Error()
	}

	color.New(color.FgRed, color.Bold).Println("[!] " + issue)
}
