// Package bot exposes the race coordinator as prefix commands in Discord
// guild channels.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/PikalaxALT/dumbsparce/internal/platform/errors"
	"github.com/PikalaxALT/dumbsparce/internal/platform/id"
	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
	"github.com/bwmarrin/discordgo"
)

// DefaultPrefix marks messages as race commands when no prefix is configured.
const DefaultPrefix = "!"

// commandTimeout bounds one command's coordinator work. Starting a race runs
// a multi-second countdown, so this stays generous.
const commandTimeout = time.Minute

// Coordinator is the subset of race operations the command surface drives.
type Coordinator interface {
	SetupGuild(ctx context.Context, guildID string) (domain.GuildConfig, error)
	CreateRace(ctx context.Context, guildID, hostID string, teamless bool) (domain.Race, error)
	JoinRace(ctx context.Context, code, participantID string) (domain.Race, error)
	ToggleReady(ctx context.Context, code, participantID string) (bool, error)
	StartRace(ctx context.Context, code, participantID string) error
	ReportFinish(ctx context.Context, code, participantID string, outcome domain.Outcome) (time.Duration, error)
	CancelRace(ctx context.Context, code, participantID string) error
	RaceByChannel(ctx context.Context, channelRef string) (domain.Race, error)
}

// Bot routes guild messages carrying the command prefix to the coordinator.
type Bot struct {
	session *discordgo.Session
	coord   Coordinator
	prefix  string
	remove  func()
}

// New creates a command router over an authenticated session.
func New(session *discordgo.Session, coord Coordinator, prefix string) *Bot {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &Bot{session: session, coord: coord, prefix: prefix}
}

// Register attaches the message handler and declares the gateway intents the
// commands need. Call before the session opens.
func (b *Bot) Register() {
	b.session.Identify.Intents |= discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	b.remove = b.session.AddHandler(b.handleMessage)
}

// Close detaches the message handler.
func (b *Bot) Close() {
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if !strings.HasPrefix(m.Content, b.prefix) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply, err := b.dispatch(ctx, m.GuildID, m.ChannelID, m.Author.ID, strings.TrimPrefix(m.Content, b.prefix))
	if err != nil {
		ref := errorReference()
		reply = b.userMessage(err, ref)
		log.Printf("command %q from %s [%s]: %v", m.Content, m.Author.ID, ref, err)
	}
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply, discordgo.WithContext(ctx)); err != nil {
		log.Printf("reply in channel %s: %v", m.ChannelID, err)
	}
}

// dispatch parses one prefixless command line and runs it. The returned reply
// is posted in the invoking channel; race-channel announcements are the
// coordinator's own notifications.
func (b *Bot) dispatch(ctx context.Context, guildID, channelID, authorID, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "raceconfig":
		if _, err := b.coord.SetupGuild(ctx, guildID); err != nil {
			return "", err
		}
		return "Race categories created. Start a race with `" + b.prefix + "race`.", nil

	case "race":
		teamless := len(args) > 0 && strings.EqualFold(args[0], "teamless")
		race, err := b.coord.CreateRace(ctx, guildID, authorID, teamless)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("New race channel <#%s> created. To join, type `%sjoin %s`",
			race.Resources.ChannelRef, b.prefix, race.Code), nil

	case "join":
		if len(args) == 0 {
			return "Usage: `" + b.prefix + "join <code>`", nil
		}
		_, err := b.coord.JoinRace(ctx, strings.ToUpper(args[0]), authorID)
		return "", err

	case "ready":
		race, err := b.coord.RaceByChannel(ctx, channelID)
		if err != nil {
			return "", err
		}
		_, err = b.coord.ToggleReady(ctx, race.Code, authorID)
		return "", err

	case "start":
		race, err := b.coord.RaceByChannel(ctx, channelID)
		if err != nil {
			return "", err
		}
		if err := b.coord.StartRace(ctx, race.Code, authorID); err != nil {
			return "", err
		}
		return fmt.Sprintf("The race has started.\nWhen you finish, type `%sdone`.\nTo forfeit, type `%sforfeit`.",
			b.prefix, b.prefix), nil

	case "done":
		race, err := b.coord.RaceByChannel(ctx, channelID)
		if err != nil {
			return "", err
		}
		_, err = b.coord.ReportFinish(ctx, race.Code, authorID, domain.OutcomeFinished)
		return "", err

	case "forfeit":
		race, err := b.coord.RaceByChannel(ctx, channelID)
		if err != nil {
			return "", err
		}
		_, err = b.coord.ReportFinish(ctx, race.Code, authorID, domain.OutcomeForfeited)
		return "", err

	case "cancel":
		race, err := b.coord.RaceByChannel(ctx, channelID)
		if err != nil {
			return "", err
		}
		return "", b.coord.CancelRace(ctx, race.Code, authorID)
	}
	return "", nil
}

// errorReference generates a short token correlating a user-visible failure
// with its log entry.
func errorReference() string {
	ref, err := id.NewID()
	if err != nil {
		return "unknown"
	}
	return ref[:8]
}

// userMessage renders a coordinator error for the invoking channel. Internal
// failures carry the log reference so reports can be traced.
func (b *Bot) userMessage(err error, ref string) string {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return "Something went wrong. Please try again. (reference " + ref + ")"
	}
	if appErr.Code.Retryable() {
		return "The race service is busy right now. Please try again."
	}
	switch appErr.Code {
	case apperrors.CodeNoGuildConfig:
		return "This server is not configured. Please run " + b.prefix + "raceconfig."
	case apperrors.CodeGuildConfigExists:
		return "This server already has a race category."
	case apperrors.CodeRaceDoesNotExist:
		return "The indicated race does not exist, or you are using this command outside a race channel."
	case apperrors.CodeRaceNotStarted:
		return "You cannot use this command before the race has begun."
	case apperrors.CodeRaceAlreadyStarted:
		return "This race cannot be started more than once."
	case apperrors.CodeNotEnoughRacers:
		return "Need at least two racers to start a race."
	case apperrors.CodeNotReady:
		return `All racers must indicate "ready" before you can start`
	case apperrors.CodeNotHost:
		return "Only the race host may do that."
	case apperrors.CodeNotRacing:
		return "You are not a participant in this race, or you have already finished or forfeited."
	case apperrors.CodeAlreadyJoined:
		return "You have already joined this race."
	case apperrors.CodeResourceProvisioningFailed:
		return "Could not set up the race resources. Check the bot's permissions."
	default:
		return "Something went wrong. Please try again. (reference " + ref + ")"
	}
}
