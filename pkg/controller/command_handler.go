package controller

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/google/uuid"
)

// handleHelp processes HELP command
func (ch *CommandHandler) handleHelp() string {
	return `Available commands:
APPEND <address> <data> [stream...] - write data at address, optionally on streams
HOLE <address> - fill address with a hole
READ <address> - read the entry at address
TRIM <address> - mark a single address as trimmed
PREFIXTRIM <address> - trim every address up to and including address
COMPACT - delete segments below the trim mark
SYNC - flush written segments to disk
TAILS - show the global and per-stream tails
TRIMMARK - show the first untrimmed address
RESET - delete all data
HELP - show this help
EXIT - exit`
}

// handleAppend processes APPEND command
func (ch *CommandHandler) handleAppend(args []string, ctx *ClientContext) string {
	if len(args) < 2 {
		return "ERROR: invalid APPEND syntax. Expected: APPEND <address> <data> [stream...]"
	}
	address, err := parseAddress(args[0])
	if err != nil {
		return "ERROR: " + err.Error()
	}

	backpointers := make(map[uuid.UUID]int64, len(args)-2)
	for _, s := range args[2:] {
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Sprintf("ERROR: invalid stream id %q: %v", s, err)
		}
		backpointers[id] = types.NonAddress
	}

	entry := types.NewData(address, []byte(args[1]), backpointers)
	if ctx != nil {
		clientID, threadID := ctx.ClientID, ctx.ThreadID
		entry.ClientID = &clientID
		entry.ThreadID = &threadID
	}

	if err := ch.Storage.Append(address, entry); err != nil {
		return formatError(err)
	}
	return fmt.Sprintf("OK wrote %d bytes at %d", len(entry.Data), address)
}

// handleHole processes HOLE command
func (ch *CommandHandler) handleHole(args []string) string {
	if len(args) != 1 {
		return "ERROR: invalid HOLE syntax. Expected: HOLE <address>"
	}
	address, err := parseAddress(args[0])
	if err != nil {
		return "ERROR: " + err.Error()
	}
	if err := ch.Storage.Append(address, types.NewHole(address)); err != nil {
		return formatError(err)
	}
	return fmt.Sprintf("OK hole at %d", address)
}

// handleRead processes READ command
func (ch *CommandHandler) handleRead(args []string) string {
	if len(args) != 1 {
		return "ERROR: invalid READ syntax. Expected: READ <address>"
	}
	address, err := parseAddress(args[0])
	if err != nil {
		return "ERROR: " + err.Error()
	}

	entry, err := ch.Storage.Read(address)
	if err != nil {
		return formatError(err)
	}
	if entry == nil {
		return fmt.Sprintf("(empty) %d", address)
	}
	return formatEntry(entry)
}

// handleTrim processes TRIM command
func (ch *CommandHandler) handleTrim(args []string) string {
	if len(args) != 1 {
		return "ERROR: invalid TRIM syntax. Expected: TRIM <address>"
	}
	address, err := parseAddress(args[0])
	if err != nil {
		return "ERROR: " + err.Error()
	}
	if err := ch.Storage.Trim(address); err != nil {
		return formatError(err)
	}
	return fmt.Sprintf("OK trimmed %d", address)
}

// handlePrefixTrim processes PREFIXTRIM command
func (ch *CommandHandler) handlePrefixTrim(args []string) string {
	if len(args) != 1 {
		return "ERROR: invalid PREFIXTRIM syntax. Expected: PREFIXTRIM <address>"
	}
	address, err := parseAddress(args[0])
	if err != nil {
		return "ERROR: " + err.Error()
	}
	if err := ch.Storage.PrefixTrim(address); err != nil {
		return formatError(err)
	}
	return fmt.Sprintf("OK trim mark %d", ch.Storage.GetTrimMark())
}

func (ch *CommandHandler) handleCompact() string {
	if err := ch.Storage.Compact(); err != nil {
		return formatError(err)
	}
	return "OK compacted"
}

func (ch *CommandHandler) handleSync() string {
	if err := ch.Storage.Sync(true); err != nil {
		return formatError(err)
	}
	return "OK synced"
}

func (ch *CommandHandler) handleTails() string {
	tails := ch.Storage.GetTails()

	var b strings.Builder
	fmt.Fprintf(&b, "global=%d", tails.GlobalTail)

	ids := make([]uuid.UUID, 0, len(tails.StreamTails))
	for id := range tails.StreamTails {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		fmt.Fprintf(&b, "\n%s=%d", id, tails.StreamTails[id])
	}
	return b.String()
}

func (ch *CommandHandler) handleTrimMark() string {
	return strconv.FormatInt(ch.Storage.GetTrimMark(), 10)
}

func (ch *CommandHandler) handleReset() string {
	if err := ch.Storage.Reset(); err != nil {
		return formatError(err)
	}
	return "OK reset"
}

func parseAddress(s string) (int64, error) {
	address, err := strconv.ParseInt(s, 10, 64)
	if err != nil || address < 0 {
		return 0, fmt.Errorf("address must be a non-negative integer, got %q", s)
	}
	return address, nil
}

func formatEntry(entry *types.LogData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", entry.GlobalAddress, entry.Type)
	if len(entry.Data) > 0 {
		fmt.Fprintf(&b, " data=%q", entry.Data)
	}
	if entry.Rank != nil {
		fmt.Fprintf(&b, " rank=%d", entry.Rank.Rank)
	}
	if streams := entry.Streams(); len(streams) > 0 {
		names := make([]string, len(streams))
		for i, s := range streams {
			names[i] = s.String()
		}
		fmt.Fprintf(&b, " streams=%s", strings.Join(names, ","))
	}
	return b.String()
}

func formatError(err error) string {
	if cause, ok := types.OverwriteCauseOf(err); ok {
		return fmt.Sprintf("ERROR: overwrite (%s)", cause)
	}
	if errors.Is(err, types.ErrClosed) {
		return "ERROR: log unit is closed"
	}
	return "ERROR: " + err.Error()
}
