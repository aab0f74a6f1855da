// Package discord adapts a discordgo session to the membership directory
// and notifier boundaries.
package discord

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/nerevar/corpsync/internal/domain"
)

const membersPageSize = 1000

// Directory reads and mutates guild role membership through the gateway
// session's REST client.
type Directory struct {
	session *discordgo.Session
	logger  *slog.Logger
}

func NewDirectory(session *discordgo.Session, logger *slog.Logger) *Directory {
	return &Directory{
		session: session,
		logger:  logger,
	}
}

func (d *Directory) RoleExists(ctx context.Context, serverID, roleID string) (bool, error) {
	roles, err := d.session.GuildRoles(serverID, discordgo.WithContext(ctx))
	if err != nil {
		return false, translate(err, serverID, "", roleID)
	}
	for _, role := range roles {
		if role.ID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (d *Directory) GetMember(ctx context.Context, serverID, userID string) (*domain.Member, error) {
	member, err := d.session.GuildMember(serverID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err, serverID, userID, "")
	}
	return memberToDomain(member), nil
}

// ListMembers walks the paginated member list until a short page.
func (d *Directory) ListMembers(ctx context.Context, serverID string) ([]domain.Member, error) {
	var out []domain.Member
	after := ""
	for {
		page, err := d.session.GuildMembers(serverID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, translate(err, serverID, "", "")
		}
		for _, m := range page {
			out = append(out, *memberToDomain(m))
		}
		if len(page) < membersPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (d *Directory) GrantRole(ctx context.Context, serverID, userID, roleID string) error {
	err := d.session.GuildMemberRoleAdd(serverID, userID, roleID, discordgo.WithContext(ctx))
	if err != nil {
		return translate(err, serverID, userID, roleID)
	}
	return nil
}

func (d *Directory) RevokeRole(ctx context.Context, serverID, userID, roleID string) error {
	err := d.session.GuildMemberRoleRemove(serverID, userID, roleID, discordgo.WithContext(ctx))
	if err != nil {
		return translate(err, serverID, userID, roleID)
	}
	return nil
}

func memberToDomain(m *discordgo.Member) *domain.Member {
	name := m.Nick
	if name == "" && m.User != nil {
		name = m.User.Username
	}
	userID := ""
	if m.User != nil {
		userID = m.User.ID
	}
	return &domain.Member{
		UserID:   userID,
		UserName: name,
		Roles:    m.Roles,
	}
}

// translate maps REST failures to domain errors. 404 means the member or
// role is gone, 403 means the bot lacks the Manage Roles permission or sits
// below the role in the hierarchy.
func translate(err error, serverID, userID, roleID string) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return domain.NotFoundError{Resource: "member"}
		case http.StatusForbidden:
			return domain.PermissionDeniedError{
				ServerID: serverID,
				UserID:   userID,
				RoleID:   roleID,
			}
		}
	}
	return err
}

// ChannelNotifier posts plain text messages to guild channels. Delivery is
// best effort.
type ChannelNotifier struct {
	session *discordgo.Session
	logger  *slog.Logger
}

func NewChannelNotifier(session *discordgo.Session, logger *slog.Logger) *ChannelNotifier {
	return &ChannelNotifier{
		session: session,
		logger:  logger,
	}
}

func (n *ChannelNotifier) Send(ctx context.Context, channelID string, text string) {
	_, err := n.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		n.logger.Warn("channel notification failed",
			slog.String("channel_id", channelID),
			slog.String("error", err.Error()),
		)
	}
}
