package utils

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/config"
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// createStatsCommand creates the /stats command
func createStatsCommand() *discord.Command {
	return discord.NewCommand(
		"stats",
		"Show bot and host statistics",
		Category,
		statsHandler,
	).WithCooldown(10)
}

// SystemStats is what /stats reports
type SystemStats struct {
	Platform     string
	HostUptime   time.Duration
	MemoryTotal  uint64
	MemoryPct    float64
	ProcessRSS   uint64
	ProcessCPU   float64
	Goroutines   int
	GoVersion    string
	BotUptime    time.Duration
	Guilds       int
	LatencyMs    int64
	BotAvatarURL string
}

// gatherStats collects host and process statistics; host lookups that fail
// leave their fields empty.
func gatherStats(ctx context.Context, client *discord.ExtendedClient) *SystemStats {
	stats := &SystemStats{
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  strings.TrimPrefix(runtime.Version(), "go"),
		BotUptime:  client.Uptime(),
		Guilds:     client.GuildCount(),
		LatencyMs:  client.Latency().Milliseconds(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Platform = fmt.Sprintf("%s %s (%s)", info.Platform, info.PlatformVersion, info.KernelArch)
		stats.HostUptime = time.Duration(info.Uptime) * time.Second
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryTotal = vm.Total
		stats.MemoryPct = vm.UsedPercent
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if m, err := p.MemoryInfoWithContext(ctx); err == nil {
			stats.ProcessRSS = m.RSS
		}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			stats.ProcessCPU = pct
		}
	}
	if u := client.BotUser(); u != nil {
		stats.BotAvatarURL = u.AvatarURL("")
	}
	return stats
}

func statsHandler(ctx *discord.CommandContext) error {
	c, cancel := ctx.RequestContext()
	defer cancel()
	return ctx.ReplyEmbed(statsEmbed(gatherStats(c, ctx.Client)))
}

func statsEmbed(stats *SystemStats) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📊 Sentinel Statistics",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Version", Value: config.Version, Inline: true},
			{Name: "🐹 Go", Value: stats.GoVersion, Inline: true},
			{Name: "📚 DiscordGo", Value: discordgo.VERSION, Inline: true},
			{Name: "🏠 Servers", Value: fmt.Sprintf("%d", stats.Guilds), Inline: true},
			{Name: "📶 Latency", Value: fmt.Sprintf("%dms", stats.LatencyMs), Inline: true},
			{Name: "⏱ Uptime", Value: formatDuration(stats.BotUptime), Inline: true},
			{Name: "🧠 Process", Value: fmt.Sprintf("%s RSS • %.1f%% CPU • %d goroutines",
				formatBytes(stats.ProcessRSS), stats.ProcessCPU, stats.Goroutines)},
			{Name: "🖥️ Host", Value: fmt.Sprintf("%s\nMemory %.1f%% of %s • up %s",
				orUnknown(stats.Platform), stats.MemoryPct, formatBytes(stats.MemoryTotal), formatDuration(stats.HostUptime))},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    "🛡️ Sentinel",
			IconURL: stats.BotAvatarURL,
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats a duration as "1d 2h 3m 4s", skipping zero parts
func formatDuration(dur time.Duration) string {
	days := int(dur.Hours() / 24)
	hours := int(dur.Hours()) % 24
	minutes := int(dur.Minutes()) % 60
	seconds := int(dur.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}
