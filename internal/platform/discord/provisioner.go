// Package discord adapts the race coordinator's platform boundaries to a
// Discord guild via discordgo. All adapters are thin I/O wrappers; rollback
// and sequencing decisions stay with the caller.
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
	"github.com/bwmarrin/discordgo"
)

// Provisioner creates and tears down the Discord resources backing races:
// the guild's category pair, one text channel, one optional voice channel
// and one role per race.
type Provisioner struct {
	session *discordgo.Session
}

// NewProvisioner wraps an authenticated Discord session.
func NewProvisioner(session *discordgo.Session) *Provisioner {
	return &Provisioner{session: session}
}

// racePerms is the permission set denied on the active category for
// @everyone and granted per race to the race role.
var racePerms = int64(discordgo.PermissionSendMessages |
	discordgo.PermissionViewChannel |
	discordgo.PermissionVoiceConnect |
	discordgo.PermissionVoiceSpeak)

// CreateGuildCategories provisions the active "Races" category and the
// "Race Archive" category for one-time guild setup.
func (p *Provisioner) CreateGuildCategories(ctx context.Context, guildID string) (string, string, error) {
	active, err := p.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: "Races",
		Type: discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{{
			ID:   guildID, // @everyone shares the guild's ID
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: racePerms,
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", "", fmt.Errorf("create races category: %w", err)
	}

	archive, err := p.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: "Race Archive",
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		if _, delErr := p.session.ChannelDelete(active.ID, discordgo.WithContext(ctx)); delErr != nil {
			return "", "", fmt.Errorf("create archive category: %w (races category %s left behind: %v)", err, active.ID, delErr)
		}
		return "", "", fmt.Errorf("create archive category: %w", err)
	}
	return active.ID, archive.ID, nil
}

// CreateRaceChannel provisions the role and channels for one race under the
// guild's active category. Only holders of the race role can see or speak in
// them. Teamless races get no voice channel.
func (p *Provisioner) CreateRaceChannel(ctx context.Context, cfg domain.GuildConfig, code string, teamless bool) (domain.Resources, error) {
	role, err := p.session.GuildRoleCreate(cfg.GuildID, &discordgo.RoleParams{
		Name: "Racer " + code,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Resources{}, fmt.Errorf("create race role: %w", err)
	}

	overwrites := []*discordgo.PermissionOverwrite{{
		ID:    role.ID,
		Type:  discordgo.PermissionOverwriteTypeRole,
		Allow: racePerms,
	}}

	channel, err := p.session.GuildChannelCreateComplex(cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:                 "race-" + strings.ToLower(code),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             cfg.ActiveCategoryRef,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		p.bestEffortRoleDelete(ctx, cfg.GuildID, role.ID)
		return domain.Resources{}, fmt.Errorf("create race channel: %w", err)
	}

	resources := domain.Resources{ChannelRef: channel.ID, RoleRef: role.ID}
	if teamless {
		return resources, nil
	}

	voice, err := p.session.GuildChannelCreateComplex(cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:                 "Race Comms " + code,
		Type:                 discordgo.ChannelTypeGuildVoice,
		ParentID:             cfg.ActiveCategoryRef,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		if _, delErr := p.session.ChannelDelete(channel.ID, discordgo.WithContext(ctx)); delErr != nil {
			err = fmt.Errorf("%w (race channel %s left behind: %v)", err, channel.ID, delErr)
		}
		p.bestEffortRoleDelete(ctx, cfg.GuildID, role.ID)
		return domain.Resources{}, fmt.Errorf("create voice channel: %w", err)
	}
	resources.VoiceRef = voice.ID
	return resources, nil
}

func (p *Provisioner) bestEffortRoleDelete(ctx context.Context, guildID, roleID string) {
	_ = p.session.GuildRoleDelete(guildID, roleID, discordgo.WithContext(ctx))
}

// AssignRole grants a guild member the race role.
func (p *Provisioner) AssignRole(ctx context.Context, guildID, participantID, roleRef string) error {
	if err := p.session.GuildMemberRoleAdd(guildID, participantID, roleRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("assign race role: %w", err)
	}
	return nil
}

// ArchiveChannel moves a channel under the archive category and clears its
// permission overwrites so the archived transcript is readable guild-wide.
func (p *Provisioner) ArchiveChannel(ctx context.Context, channelRef, archiveCategoryRef string) error {
	_, err := p.session.ChannelEditComplex(channelRef, &discordgo.ChannelEdit{
		ParentID:             archiveCategoryRef,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("archive channel: %w", err)
	}
	return nil
}

// DeleteChannel removes a provisioned channel outright.
func (p *Provisioner) DeleteChannel(ctx context.Context, channelRef string) error {
	if _, err := p.session.ChannelDelete(channelRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}

// ReleaseRole deletes the race role, removing it from every holder.
func (p *Provisioner) ReleaseRole(ctx context.Context, guildID, roleRef string) error {
	if err := p.session.GuildRoleDelete(guildID, roleRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("release race role: %w", err)
	}
	return nil
}

// Mention formats a participant ID as a Discord user mention.
func Mention(participantID string) string {
	return "<@" + participantID + ">"
}
