package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/tmcewan/cashgamebot/internal/ledger"
)

func HandleSession(s *discordgo.Session, i *discordgo.InteractionCreate, svc *ledger.Service) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondText(s, i, "No subcommand given.")
		return
	}
	sub := data.Options[0]
	ctx := context.Background()

	switch sub.Name {
	case "start":
		bankID, bankName, ok := optionUser(data, sub.Options, "bank")
		if !ok {
			respondText(s, i, "A bank player must be given.")
			return
		}
		err := svc.StartSession(ctx, bankID)
		switch {
		case errors.Is(err, ledger.ErrSessionActive):
			respondText(s, i, "A session is already running.")
		case errors.Is(err, ledger.ErrPlayerNotFound):
			respondText(s, i, fmt.Sprintf("Player '%s' has not been added yet. Try: /player add", bankName))
		case err != nil:
			respondText(s, i, "Failed to start the session.")
		default:
			respondText(s, i, fmt.Sprintf("Session started. Bank: '%s'. Net winnings are frozen until the session ends.", bankName))
		}

	case "buyin", "cashout":
		playerID, playerName, okPlayer := optionUser(data, sub.Options, "player")
		bankID, bankName, okBank := optionUser(data, sub.Options, "bank")
		amountOpt := optionNumber(sub.Options, "amount")
		if !okPlayer || !okBank || amountOpt == nil {
			respondText(s, i, "Usage: /session "+sub.Name+" player:<player> bank:<player> amount:<dollars>")
			return
		}
		amount := toCents(*amountOpt)
		if amount <= 0 {
			respondText(s, i, fmt.Sprintf("Invalid amount %s, must be greater than 0.", formatMoney(amount)))
			return
		}

		var err error
		if sub.Name == "buyin" {
			// Buy-in: the player owes the bank.
			_, err = svc.AddDebt(ctx, ledger.KindBuyin, bankID, playerID, amount)
		} else {
			// Cash-out: the bank owes the player.
			_, err = svc.AddDebt(ctx, ledger.KindCashout, playerID, bankID, amount)
		}
		if errors.Is(err, ledger.ErrPlayerNotFound) {
			respondText(s, i, "Both players must be added first. Try: /player add")
			return
		}
		if err != nil {
			respondText(s, i, "Failed to record the debt.")
			return
		}
		if sub.Name == "buyin" {
			respondText(s, i, fmt.Sprintf(
				"Player '%s' has bought in for %s. Bank: '%s'.\nThe following debt has been added:\n```%s owes %s to %s```",
				playerName, formatMoney(amount), bankName, playerName, formatMoney(amount), bankName))
		} else {
			respondText(s, i, fmt.Sprintf(
				"Player '%s' has cashed out for %s. Bank: '%s'.\nThe following debt has been added:\n```%s owes %s to %s```",
				playerName, formatMoney(amount), bankName, bankName, formatMoney(amount), playerName))
		}

	case "end":
		err := svc.EndSession(ctx)
		switch {
		case errors.Is(err, ledger.ErrNoSession):
			respondText(s, i, "No session is running.")
		case errors.Is(err, ledger.ErrIntegrity):
			respondText(s, i, fmt.Sprintf("Session ended but the rebuild failed: %v", err))
		case err != nil:
			respondText(s, i, "Failed to end the session.")
		default:
			respondText(s, i, "Session ended. Net winnings have been settled.")
		}

	case "status":
		sess, err := svc.GetSession(ctx)
		if err != nil {
			respondText(s, i, "Failed to read the session state.")
			return
		}
		if !sess.Active {
			respondText(s, i, "No session is running.")
			return
		}
		respondText(s, i, fmt.Sprintf("Session running since %s, bank <@%d>.",
			sess.StartTime.Format("2006-01-02 15:04 MST"), sess.BankID))

	default:
		respondText(s, i, "Unknown subcommand.")
	}
}
