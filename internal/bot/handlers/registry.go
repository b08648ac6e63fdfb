package handlers

import (
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/gptrelay/internal/text"
)

// RegisteredCommand is a command handler together with its menu entry.
type RegisteredCommand struct {
	Handler     Handler
	Description string
}

// RegisterAllCommands initializes and returns a map of all available bot
// commands, keyed by command name without the leading slash.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredCommand {
	return map[string]RegisteredCommand{
		"start": {
			Handler:     NewGreetingHandler(deps, "start"),
			Description: "Show what this bot does",
		},
		"help": {
			Handler:     NewGreetingHandler(deps, "help"),
			Description: "How to talk to the bot",
		},
	}
}

// MenuCommands lists the registered commands for the Telegram command menu,
// in a stable order.
func MenuCommands(registered map[string]RegisteredCommand) []models.BotCommand {
	order := []string{"start", "help"}
	cmds := make([]models.BotCommand, 0, len(registered))
	for _, name := range order {
		if rc, ok := registered[name]; ok {
			cmds = append(cmds, models.BotCommand{Command: name, Description: rc.Description})
		}
	}
	return cmds
}

// CommandName extracts the command that msg starts with. Commands with an
// @target are accepted only when the target is username. The returned name
// is lower case and has no leading slash.
func CommandName(msg *models.Message, username string) (string, bool) {
	if msg == nil {
		return "", false
	}
	content, entities := messageContent(msg)

	for _, e := range entities {
		if e.Type != models.MessageEntityTypeBotCommand || e.Offset != 0 {
			continue
		}
		token, ok := text.EntityText(content, e.Offset, e.Length)
		if !ok || !strings.HasPrefix(token, "/") {
			return "", false
		}
		name, target, addressed := strings.Cut(token[1:], "@")
		if addressed && !strings.EqualFold(target, username) {
			return "", false
		}
		if name == "" {
			return "", false
		}
		return strings.ToLower(name), true
	}
	return "", false
}
