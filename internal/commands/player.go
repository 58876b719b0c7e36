package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/tmcewan/cashgamebot/internal/ledger"
)

func HandlePlayer(s *discordgo.Session, i *discordgo.InteractionCreate, svc *ledger.Service) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondText(s, i, "No subcommand given.")
		return
	}
	sub := data.Options[0]

	switch sub.Name {
	case "add":
		id, name, ok := optionUser(data, sub.Options, "user")
		if !ok {
			respondText(s, i, "A server member must be given.")
			return
		}
		err := svc.AddPlayer(context.Background(), id, name)
		if errors.Is(err, ledger.ErrPlayerExists) {
			respondText(s, i, fmt.Sprintf("Player '%s' has already been added.", name))
			return
		}
		if err != nil {
			respondText(s, i, "Failed to add player.")
			return
		}
		respondText(s, i, fmt.Sprintf("Player '%s' added successfully.", name))

	case "info":
		id, name, ok := optionUser(data, sub.Options, "user")
		if !ok {
			respondText(s, i, "A server member must be given.")
			return
		}
		ctx := context.Background()
		player, err := svc.GetPlayer(ctx, id)
		if errors.Is(err, ledger.ErrPlayerNotFound) {
			respondText(s, i, fmt.Sprintf("Player '%s' has not been added yet. Try: /player add", name))
			return
		}
		if err != nil {
			respondText(s, i, "Failed to look up player.")
			return
		}
		rank, err := svc.Rank(ctx, id)
		if err != nil {
			respondText(s, i, "Failed to look up player.")
			return
		}
		respondEmbed(s, i, &discordgo.MessageEmbed{
			Title: player.Name,
			Color: 0x03f8fc,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Rank", Value: strconv.Itoa(rank), Inline: true},
				{Name: "Net Winnings", Value: formatMoney(player.NetWinnings), Inline: true},
				{Name: "Balance", Value: formatMoney(player.Balance), Inline: false},
			},
		})

	case "list":
		players, err := svc.GetPlayers(context.Background())
		if err != nil {
			respondText(s, i, "Failed to list players.")
			return
		}
		if len(players) == 0 {
			respondText(s, i, "No players registered yet.")
			return
		}
		rows := make([][]string, 0, len(players))
		for _, p := range players {
			rows = append(rows, []string{p.Name, formatMoney(p.Balance), formatMoney(p.NetWinnings)})
		}
		respondText(s, i, renderTable([]string{"Player", "Balance", "Net Winnings"}, rows))

	default:
		respondText(s, i, "Unknown subcommand.")
	}
}

func HandleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate, svc *ledger.Service) {
	ranked, err := svc.Leaderboard(context.Background())
	if err != nil {
		respondText(s, i, "Failed to build the leaderboard.")
		return
	}
	if len(ranked) == 0 {
		respondText(s, i, "No players registered yet.")
		return
	}
	rows := make([][]string, 0, len(ranked))
	for _, r := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(r.Rank),
			r.Player.Name,
			formatMoney(r.Player.NetWinnings),
		})
	}
	respondText(s, i, renderTable([]string{"Rank", "Player", "Net Winnings"}, rows))
}

func HandleDebts(s *discordgo.Session, i *discordgo.InteractionCreate, svc *ledger.Service) {
	data := i.ApplicationCommandData()
	id, name, ok := optionUser(data, data.Options, "user")
	if !ok {
		respondText(s, i, "A server member must be given.")
		return
	}
	ctx := context.Background()

	var owed map[int64]int64
	var err error
	if optionBool(data.Options, "session") {
		owed, err = svc.OwedSession(ctx, id)
	} else {
		owed, err = svc.Owed(ctx, id)
	}
	switch {
	case errors.Is(err, ledger.ErrPlayerNotFound):
		respondText(s, i, fmt.Sprintf("Player '%s' has not been added yet. Try: /player add", name))
		return
	case errors.Is(err, ledger.ErrNoSession):
		respondText(s, i, "No session is running.")
		return
	case err != nil:
		respondText(s, i, "Failed to look up debts.")
		return
	}
	if len(owed) == 0 {
		respondText(s, i, fmt.Sprintf("Player '%s' does not owe and is not owed.", name))
		return
	}

	players, err := svc.GetPlayers(ctx)
	if err != nil {
		respondText(s, i, "Failed to look up debts.")
		return
	}
	names := make(map[int64]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	ids := make([]int64, 0, len(owed))
	for cid := range owed {
		ids = append(ids, cid)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	rows := make([][]string, 0, len(ids))
	for _, cid := range ids {
		label, ok := names[cid]
		if !ok {
			label = strconv.FormatInt(cid, 10)
		}
		rows = append(rows, []string{label, formatMoney(owed[cid])})
	}
	table := renderTable([]string{"Owed To/By", "Amount"}, rows)
	respondText(s, i, fmt.Sprintf("%s\nPositive: owed to %s\nNegative: owed by %s", table, name, name))
}

func HandlePay(s *discordgo.Session, i *discordgo.InteractionCreate, svc *ledger.Service) {
	data := i.ApplicationCommandData()
	fromID, fromName, okFrom := optionUser(data, data.Options, "from")
	toID, toName, okTo := optionUser(data, data.Options, "to")
	amountOpt := optionNumber(data.Options, "amount")
	if !okFrom || !okTo || amountOpt == nil {
		respondText(s, i, "Usage: /pay from:<player> to:<player> amount:<dollars>")
		return
	}
	amount := toCents(*amountOpt)
	if amount <= 0 {
		respondText(s, i, fmt.Sprintf("Invalid amount %s, must be greater than 0.", formatMoney(amount)))
		return
	}

	// A payment relieves the paying player's debt: the cash payer is the
	// record's recipient so the positive amount raises their balance.
	_, err := svc.AddDebt(context.Background(), ledger.KindPayment, fromID, toID, amount)
	if errors.Is(err, ledger.ErrPlayerNotFound) {
		respondText(s, i, "Both players must be added first. Try: /player add")
		return
	}
	if err != nil {
		respondText(s, i, "Failed to record the payment.")
		return
	}
	respondText(s, i, fmt.Sprintf("'%s' paid %s to '%s'.", fromName, formatMoney(amount), toName))
}

func HandleRefresh(s *discordgo.Session, i *discordgo.InteractionCreate, svc *ledger.Service) {
	err := svc.RefreshBalances(context.Background())
	if errors.Is(err, ledger.ErrIntegrity) {
		respondText(s, i, fmt.Sprintf("Refresh aborted, the history is inconsistent: %v", err))
		return
	}
	if err != nil {
		respondText(s, i, "Failed to refresh balances.")
		return
	}
	respondText(s, i, "Balances rebuilt from the debt history.")
}
