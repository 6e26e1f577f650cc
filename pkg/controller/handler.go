package controller

import (
	"strings"

	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/downfa11-org/logunit/util"
)

// CommandHandler executes text commands against a local log unit.
type CommandHandler struct {
	Storage types.LogStorage
}

func NewCommandHandler(storage types.LogStorage) *CommandHandler {
	return &CommandHandler{Storage: storage}
}

func (ch *CommandHandler) logCommandResult(cmd, response string) {
	status := "SUCCESS"
	if strings.HasPrefix(response, "ERROR:") {
		status = "FAILURE"
	}
	cleanResponse := strings.ReplaceAll(response, "\n", " ")
	util.Debug("status: '%s', command: '%s' to Response '%s'", status, cmd, cleanResponse)
}

// HandleCommand runs one command line and returns the response text.
// Failures are reported with an "ERROR:" prefix.
func (ch *CommandHandler) HandleCommand(rawCmd string, ctx *ClientContext) string {
	cmd := strings.TrimSpace(rawCmd)

	if cmd == "" {
		resp := "ERROR: empty command"
		ch.logCommandResult(rawCmd, resp)
		return resp
	}

	fields := strings.Fields(cmd)
	args := fields[1:]
	var resp string

	switch strings.ToUpper(fields[0]) {
	case "HELP":
		resp = ch.handleHelp()
	case "APPEND":
		resp = ch.handleAppend(args, ctx)
	case "HOLE":
		resp = ch.handleHole(args)
	case "READ":
		resp = ch.handleRead(args)
	case "TRIM":
		resp = ch.handleTrim(args)
	case "PREFIXTRIM":
		resp = ch.handlePrefixTrim(args)
	case "COMPACT":
		resp = ch.handleCompact()
	case "SYNC":
		resp = ch.handleSync()
	case "TAILS":
		resp = ch.handleTails()
	case "TRIMMARK":
		resp = ch.handleTrimMark()
	case "RESET":
		resp = ch.handleReset()
	default:
		resp = "ERROR: unknown command: " + cmd + ". Type HELP for available commands."
	}

	ch.logCommandResult(rawCmd, resp)
	return resp
}
