package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"qotdbot/internal/kit"
	"qotdbot/internal/qotd"
	"qotdbot/internal/services/notify"
)

// Commands are addressed either as "/qotd <sub> [args]" or via the aliased
// single-command form "/qotd_<sub> [args]" (Telegram's command menu cannot
// express subcommands). The guild key is the chat the command arrives in.

func menuCommands() []kit.BotCommand {
	return []kit.BotCommand{
		{Command: "qotd_status", Description: "Show QOTD settings for this chat"},
		{Command: "qotd_set_channel", Description: "Post questions to this chat (or a given channel)"},
		{Command: "qotd_set_time", Description: "Set the daily posting time (HH:MM)"},
		{Command: "qotd_start", Description: "Enable the daily question"},
		{Command: "qotd_stop", Description: "Disable the daily question"},
		{Command: "qotd_schedule_once", Description: "Schedule a one-time question (HH:MM [number])"},
		{Command: "qotd_list_schedules", Description: "List pending one-time questions"},
		{Command: "qotd_cancel_schedule", Description: "Cancel a pending one-time question"},
		{Command: "qotd_next_now", Description: "Post the next question immediately"},
		{Command: "qotd_preview", Description: "Preview the next question without posting"},
		{Command: "qotd_shuffle", Description: "Reshuffle the question order"},
	}
}

const helpText = `Question of the Day commands:
/qotd set_channel [chat[:thread]] - where questions get posted
/qotd set_time HH:MM - daily posting time
/qotd start | stop - enable or disable the daily post
/qotd schedule_once HH:MM [number] - one-time question today/tomorrow
/qotd list_schedules - pending one-time questions
/qotd cancel_schedule N - cancel pending entry N
/qotd next_now - post the next question right now
/qotd preview - peek at the next question
/qotd shuffle - reshuffle the question order
/qotd status - current settings`

func (a *App) handleMessage(ctx context.Context, m *kit.Message) {
	sub, args, ok := parseCommand(m.Text)
	if !ok {
		return
	}

	guildID := strconv.FormatInt(m.ChatID, 10)
	reply := func(text string) {
		to := kit.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID}
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := a.adapter.SendText(sctx, to, text, nil); err != nil {
			a.log.Warn("reply failed",
				slog.String("guild", guildID),
				slog.String("cmd", sub),
				slog.Any("err", err))
		}
	}

	if mutatesState(sub) && !a.isOwner(m.FromID) {
		reply("Sorry, only the bot owner can change QOTD settings.")
		return
	}

	switch sub {
	case "help", "":
		reply(helpText)

	case "set_channel":
		a.cmdSetChannel(ctx, guildID, m, args, reply)

	case "set_time":
		if len(args) != 1 {
			reply("Usage: /qotd set_time HH:MM (24-hour IST)")
			return
		}
		if err := a.engine.SetTime(ctx, guildID, args[0]); err != nil {
			reply(renderErr(err))
			return
		}
		reply(fmt.Sprintf("Daily question time set to %s IST.", args[0]))

	case "start", "enable":
		if err := a.engine.Enable(ctx, guildID); err != nil {
			reply(renderErr(err))
			return
		}
		st := a.engine.GuildStatus(guildID)
		reply(fmt.Sprintf("Daily questions enabled. Next post at %s IST.", st.TimeHHMM))

	case "stop", "disable":
		if err := a.engine.Disable(ctx, guildID); err != nil {
			reply(renderErr(err))
			return
		}
		reply("Daily questions disabled. Pending one-time schedules are kept.")

	case "schedule_once":
		a.cmdScheduleOnce(ctx, guildID, args, reply)

	case "list_schedules":
		reply(renderPending(a.engine.ListPending(guildID)))

	case "cancel_schedule":
		if len(args) != 1 {
			reply("Usage: /qotd cancel_schedule N (see /qotd list_schedules)")
			return
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			reply("Schedule number must be a number.")
			return
		}
		if err := a.engine.Cancel(ctx, guildID, n); err != nil {
			reply(renderErr(err))
			return
		}
		reply(fmt.Sprintf("Cancelled one-time schedule #%d.", n))

	case "next_now", "force":
		if err := a.engine.FireNow(ctx, guildID); err != nil {
			reply(renderErr(err))
			return
		}
		// The question lands in the configured channel; only confirm here
		// if that isn't the chat we're talking in.
		st := a.engine.GuildStatus(guildID)
		if tgt, err := notify.ParseChannel(st.ChannelID); err == nil && tgt.ChatID != m.ChatID {
			reply("Posted the next question.")
		}

	case "preview":
		q := a.engine.Preview(guildID)
		if q == "" {
			reply("The question pool is empty.")
			return
		}
		st := a.engine.GuildStatus(guildID)
		reply(fmt.Sprintf("Next question (%d/%d):\n%s", st.NextIndex, st.PoolSize, q))

	case "shuffle":
		if err := a.engine.Shuffle(ctx, guildID); err != nil {
			reply(renderErr(err))
			return
		}
		reply("Question order reshuffled. Starting from the top of the new order.")

	case "status":
		reply(renderStatus(a.engine.GuildStatus(guildID)))

	default:
		reply(fmt.Sprintf("Unknown QOTD command %q. Try /qotd help.", sub))
	}
}

func (a *App) cmdSetChannel(ctx context.Context, guildID string, m *kit.Message, args []string, reply func(string)) {
	var channel string
	if len(args) >= 1 {
		channel = args[0]
		if _, err := notify.ParseChannel(channel); err != nil {
			reply("Channel must look like a chat id, e.g. -1001234567890 or -1001234567890:42.")
			return
		}
	} else {
		// No argument: post into the chat (and thread) the command came from.
		channel = strconv.FormatInt(m.ChatID, 10)
		if m.ThreadID != 0 {
			channel += ":" + strconv.Itoa(m.ThreadID)
		}
	}
	if err := a.engine.SetChannel(ctx, guildID, channel); err != nil {
		reply(renderErr(err))
		return
	}
	reply(fmt.Sprintf("Questions will be posted to %s.", channel))
}

func (a *App) cmdScheduleOnce(ctx context.Context, guildID string, args []string, reply func(string)) {
	if len(args) < 1 || len(args) > 2 {
		reply("Usage: /qotd schedule_once HH:MM [question number]")
		return
	}
	var qIdx *int
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			reply("Question number must be a positive number.")
			return
		}
		i := n - 1
		qIdx = &i
	}
	runAt, err := a.engine.ScheduleOnce(ctx, guildID, args[0], qIdx)
	if err != nil {
		reply(renderErr(err))
		return
	}
	reply(fmt.Sprintf("One-time question scheduled for %s.", runAt.Format("Mon 02 Jan 15:04 MST")))
}

// parseCommand extracts the QOTD subcommand and its arguments, accepting
// "/qotd sub args", "/qotd_sub args" and the @botname suffix Telegram adds
// in groups.
func parseCommand(text string) (sub string, args []string, ok bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", nil, false
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	cmd = strings.ToLower(cmd)

	switch {
	case cmd == "/qotd":
		if len(fields) == 1 {
			return "help", nil, true
		}
		return strings.ToLower(fields[1]), fields[2:], true
	case strings.HasPrefix(cmd, "/qotd_"):
		return strings.TrimPrefix(cmd, "/qotd_"), fields[1:], true
	default:
		return "", nil, false
	}
}

func mutatesState(sub string) bool {
	switch sub {
	case "set_channel", "set_time", "start", "enable", "stop", "disable",
		"schedule_once", "cancel_schedule", "next_now", "force", "shuffle":
		return true
	}
	return false
}

func renderErr(err error) string {
	if qotd.IsValidation(err) {
		return err.Error()
	}
	return "Something went wrong: " + err.Error()
}

func renderPending(pending []qotd.PendingOneShot) string {
	if len(pending) == 0 {
		return "No one-time questions are scheduled."
	}
	var b strings.Builder
	b.WriteString("Pending one-time questions:\n")
	for _, p := range pending {
		fmt.Fprintf(&b, "%d. %s", p.Position, p.RunAt)
		if p.QIdx != nil {
			fmt.Fprintf(&b, " (question #%d)", *p.QIdx+1)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStatus(st qotd.Status) string {
	onOff := "disabled"
	if st.Enabled {
		onOff = "enabled"
	}
	channel := st.ChannelID
	if channel == "" {
		channel = "(not set)"
	}
	lastPost := st.LastPostDate
	if lastPost == "" {
		lastPost = "never"
	}
	return fmt.Sprintf(
		"QOTD status:\n"+
			"Daily post: %s at %s IST\n"+
			"Channel: %s\n"+
			"Next question: %d of %d\n"+
			"Last posted: %s\n"+
			"Pending one-time: %d",
		onOff, st.TimeHHMM, channel, st.NextIndex, st.PoolSize, lastPost, st.PendingCount)
}
