package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// blockNotifier posts a single embed to a Discord incoming webhook whenever
// a solo-mode submit_block succeeds; pool mode sends no notification. Unlike the
// full Discord bot this is adapted from, it never opens a gateway session:
// webhook delivery needs no bot token or guild membership.
type blockNotifier struct {
	dg         *discordgo.Session
	webhookID  string
	webhookTok string
}

// newBlockNotifier parses a standard
// https://discord.com/api/webhooks/<id>/<token> URL. An empty URL disables
// notifications; newBlockNotifier returns nil in that case.
func newBlockNotifier(webhookURL string) (*blockNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("discord webhook url: %w", err)
	}
	dg, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &blockNotifier{dg: dg, webhookID: id, webhookTok: token}, nil
}

func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("malformed webhook path %q", u.Path)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// NotifyBlockFound posts an embed describing a newly accepted block. Errors
// are logged, never fatal: a failed notification must not take down mining.
func (n *blockNotifier) NotifyBlockFound(mode string, templateNumber uint64, worker string, diff float64) {
	if n == nil {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: "Block found",
		Color: 0x2ecc71,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Mode", Value: mode, Inline: true},
			{Name: "Block", Value: fmt.Sprintf("%d", templateNumber), Inline: true},
			{Name: "Worker", Value: worker, Inline: true},
			{Name: "Share difficulty", Value: fmt.Sprintf("%.4f", diff), Inline: true},
		},
	}
	_, err := n.dg.WebhookExecute(n.webhookID, n.webhookTok, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		logger.Warn("discord webhook notify failed", "error", err)
	}
}
