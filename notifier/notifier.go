package notifier

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"dskdao/events"
)

// Notifier announces economy events in a Discord channel. It only listens to
// the event bus; gameplay happens over the HTTP API.
type Notifier struct {
	session   *discordgo.Session
	channelID string
}

// New connects to Discord and subscribes to announcement-worthy events.
// An empty token disables announcements entirely.
func New(token, channelID string, bus *events.Bus) (*Notifier, error) {
	if token == "" {
		log.Info("Discord token not configured, announcements disabled")
		return nil, nil
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening discord connection: %w", err)
	}

	n := &Notifier{
		session:   dg,
		channelID: channelID,
	}

	bus.Subscribe(events.EventTypeLootboxOpened, n.handleLootboxOpened)
	bus.Subscribe(events.EventTypeGamePlayed, n.handleGamePlayed)
	bus.Subscribe(events.EventTypeRaffleDrawn, n.handleRaffleDrawn)

	log.Info("Discord announcements enabled")
	return n, nil
}

func (n *Notifier) Close() error {
	return n.session.Close()
}

func (n *Notifier) handleLootboxOpened(ctx context.Context, event events.Event) {
	e, ok := event.(events.LootboxOpenedEvent)
	if !ok {
		return
	}

	var reward string
	if e.ItemID != nil {
		reward = fmt.Sprintf("%dx %s", e.Quantity, e.ItemName)
	} else {
		reward = fmt.Sprintf("%d points", e.Points)
	}
	n.announce(fmt.Sprintf("🎁 <@%d> opened a lootbox and got %s!", e.DiscordID, reward))
}

func (n *Notifier) handleGamePlayed(ctx context.Context, event events.Event) {
	e, ok := event.(events.GamePlayedEvent)
	if !ok {
		return
	}

	// Only big wins are worth a ping
	if e.WinAmount < e.BetAmount*2 {
		return
	}
	n.announce(fmt.Sprintf("🎰 <@%d> won %d points on %s with a %d point bet!",
		e.DiscordID, e.WinAmount, e.GameID, e.BetAmount))
}

func (n *Notifier) handleRaffleDrawn(ctx context.Context, event events.Event) {
	e, ok := event.(events.RaffleDrawnEvent)
	if !ok {
		return
	}

	n.announce(fmt.Sprintf("🎟️ Raffle %q has been drawn! Winning ticket #%d belongs to <@%d>. Congratulations!",
		e.Title, e.WinningTicket, e.WinnerDiscordID))
}

func (n *Notifier) announce(message string) {
	if n.channelID == "" {
		return
	}
	if _, err := n.session.ChannelMessageSend(n.channelID, message); err != nil {
		log.WithError(err).Error("Failed to send Discord announcement")
	}
}
